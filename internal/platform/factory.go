package platform

import (
	"fmt"
	"os"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/registry"
)

// New opens the store named by uri and returns the document service wired
// with the component catalog, the upload backend and the logger.
//
//	svc, err := sparti.New("./site", sparti.WithAutoInit(true))
func New(uri string, opts ...Option) (*core.Service, error) {
	o := parse(opts)

	catalog, err := loadCatalog(o)
	if err != nil {
		return nil, err
	}

	repo, uploader, err := open(uri, o)
	if err != nil {
		return nil, err
	}

	svcOpts := []core.ServiceOption{
		core.WithCatalog(catalog),
		core.WithLogger(o.logger),
	}
	if size, _ := o.config["event_buffer"].(int); size > 0 {
		svcOpts = append(svcOpts, core.WithEventBuffer(size))
	}
	if uploader != nil {
		svcOpts = append(svcOpts, core.WithUploader(uploader))
	}
	return core.NewService(repo, svcOpts...), nil
}

func loadCatalog(o *options) (*registry.Catalog, error) {
	catalog := o.catalog
	if catalog == nil {
		catalog = registry.NewDefault()
	}
	if o.catalogFile == "" {
		return catalog, nil
	}

	f, err := os.Open(o.catalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	// Never extend a caller's catalog in place.
	catalog = catalog.Clone()
	if err := catalog.Load(f); err != nil {
		return nil, err
	}
	return catalog, nil
}
