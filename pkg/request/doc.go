// Package request declares REST endpoints once and resolves them per call.
//
// A template is configured through a Builder: a verb, a URL pattern whose
// "{name}" and "{name:default}" segments are filled from caller params, and
// per-location properties for the query string, the headers and the body. A
// property value is either static, Dynamic (read from the caller input with an
// optional default, optionally required) or Calc (computed from the request
// resolved so far):
//
//	getProduct, err := request.Get("https://api.example.com/products/{id}",
//		request.WithDefaults(settings.Defaults()),
//	).
//		Named("getProduct").
//		Query(request.Properties{
//			"limit":  request.Dynamic(request.WithDefault(10)),
//			"offset": request.Dynamic(request.WithDefault(0)),
//		}).
//		Headers(request.Properties{
//			"X-Request-Id": request.Calc(func(request.Input, request.Context) (any, error) {
//				return uuid.NewString(), nil
//			}),
//		}).
//		MockFn(func(ctx context.Context, a *request.ActiveRequest) (any, error) {
//			return map[string]any{"id": a.Params()["id"]}, nil
//		}).
//		Build()
//
// Calling Request resolves the template against the caller input and sends it
// either through the Transport or, when mocking is on, to the mock function
// after a simulated network delay. Every failure reaches the caller as a
// *RequestError; an ErrorHandler may turn it into a 202 response instead.
//
// Named templates can be captured with Serialize and rebuilt later through a
// Registry.
package request
