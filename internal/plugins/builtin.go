package plugins

import (
	"github.com/ustczzh/AlephNote/internal/plugins/folder"
	"github.com/ustczzh/AlephNote/internal/plugins/grpcstore"
	"github.com/ustczzh/AlephNote/internal/plugins/pgstore"
	"github.com/ustczzh/AlephNote/internal/plugins/s3store"
	"github.com/ustczzh/AlephNote/internal/remote"
)

// Builtin returns a registry with every bundled backend. The local folder
// plugin is the default.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	for _, p := range []remote.Plugin{folder.New(), s3store.New(), pgstore.New(), grpcstore.New()} {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	if err := r.SetDefault(folder.ID); err != nil {
		return nil, err
	}
	return r, nil
}
