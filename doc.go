// Package sparti is the composition root of the Sparti section editor.
//
// It connects the domain (schema documents, the component catalog and
// editing sessions) with the storage adapters through functional options.
//
// Stores:
//
//   - fs (default): one JSON or YAML file per section under
//     <root>/<tenant>/<page>/<section>, optionally versioned with git.
//   - sqlite: a single database file under the system directory.
//   - http: the remote document API, addressed by base URL.
//
// Usage:
//
//	svc, err := sparti.New("./site",
//		sparti.WithAutoInit(true),
//		sparti.WithTenant("acme"),
//	)
//
//	doc, err := svc.CreateDocument(ctx, "home/hero", "hero")
//	sess, err := svc.Edit(ctx, "home/hero")
package sparti
