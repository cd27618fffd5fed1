package incusapi

import (
	"context"
	"fmt"
	"os"

	incuscli "github.com/lxc/incus/client"
	"github.com/lxc/incus/shared/api"
)

// RealClient wraps the official Incus Go client.
type RealClient struct {
	c incuscli.InstanceServer
}

// ConnectLocal connects to the local Incus daemon via the UNIX socket.
func ConnectLocal() (*RealClient, error) {
	c, err := incuscli.ConnectIncusUnix("", nil)
	if err != nil {
		return nil, err
	}
	return &RealClient{c: c}, nil
}

// project returns an InstanceServer scoped to the given project.
func (r *RealClient) project(name string) (incuscli.InstanceServer, error) {
	if name == "" || name == "default" {
		return r.c, nil
	}
	return r.c.UseProject(name), nil
}

func (r *RealClient) Server(ctx context.Context) (ServerInfo, error) {
	var s *api.Server
	err := withContext(ctx, func() error {
		var err error
		s, _, err = r.c.GetServer()
		return err
	})
	if err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{ServerVersion: s.Environment.ServerVersion}, nil
}

func (r *RealClient) ListProjects(ctx context.Context) ([]string, error) {
	var names []string
	err := withContext(ctx, func() error {
		var err error
		names, err = r.c.GetProjectNames()
		return err
	})
	return names, err
}

func (r *RealClient) ListInstances(ctx context.Context, project string) ([]Instance, error) {
	s, err := r.project(project)
	if err != nil {
		return nil, err
	}
	var insts []api.Instance
	err = withContext(ctx, func() error {
		var err error
		insts, err = s.GetInstances(api.InstanceTypeAny)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]Instance, 0, len(insts))
	for _, i := range insts {
		out = append(out, Instance{Name: i.Name, Project: project})
	}
	return out, nil
}

func (r *RealClient) CreateSnapshot(ctx context.Context, project, instance, name string) error {
	s, err := r.project(project)
	if err != nil {
		return err
	}
	// Disk-only capture; no runtime state.
	op, err := s.CreateInstanceSnapshot(instance, api.InstanceSnapshotsPost{
		Name:     name,
		Stateful: false,
	})
	if err != nil {
		return err
	}
	return op.WaitContext(ctx)
}

func (r *RealClient) DeleteSnapshot(ctx context.Context, project, instance, name string) error {
	s, err := r.project(project)
	if err != nil {
		return err
	}
	op, err := s.DeleteInstanceSnapshot(instance, name)
	if err != nil {
		return err
	}
	return op.WaitContext(ctx)
}

func (r *RealClient) ListSnapshots(ctx context.Context, project, instance string) ([]string, error) {
	s, err := r.project(project)
	if err != nil {
		return nil, err
	}
	var names []string
	err = withContext(ctx, func() error {
		var err error
		names, err = s.GetInstanceSnapshotNames(instance)
		return err
	})
	return names, err
}

func (r *RealClient) PublishImage(ctx context.Context, project, instance, snapshot, alias, compression string) error {
	s, err := r.project(project)
	if err != nil {
		return err
	}
	req := api.ImagesPost{
		Source: &api.ImagesPostSource{
			Type: "snapshot",
			Name: instance + "/" + snapshot,
		},
		CompressionAlgorithm: compression,
		Aliases:              []api.ImageAlias{{Name: alias}},
	}
	op, err := s.CreateImage(req, nil)
	if err != nil {
		return err
	}
	return op.WaitContext(ctx)
}

func (r *RealClient) ExportImage(ctx context.Context, project, alias, destPath string) error {
	s, err := r.project(project)
	if err != nil {
		return err
	}
	entry, _, err := s.GetImageAlias(alias)
	if err != nil {
		return err
	}
	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	// GetImageFile has no context variant; bound it from the outside.
	err = withContext(ctx, func() error {
		_, err := s.GetImageFile(entry.Target, incuscli.ImageFileRequest{MetaFile: f})
		return err
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(destPath)
		return err
	}
	return nil
}

func (r *RealClient) DeleteImage(ctx context.Context, project, alias string) error {
	s, err := r.project(project)
	if err != nil {
		return err
	}
	entry, _, err := s.GetImageAlias(alias)
	if err != nil {
		return fmt.Errorf("resolve image alias %q: %w", alias, err)
	}
	op, err := s.DeleteImage(entry.Target)
	if err != nil {
		return err
	}
	return op.WaitContext(ctx)
}

func (r *RealClient) ListImageAliases(ctx context.Context, project string) ([]string, error) {
	s, err := r.project(project)
	if err != nil {
		return nil, err
	}
	var entries []api.ImageAliasesEntry
	err = withContext(ctx, func() error {
		var err error
		entries, err = s.GetImageAliases()
		return err
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names, nil
}

// withContext runs fn and returns early when ctx expires. The Incus client
// offers no context variant for plain GETs; on timeout the call is abandoned
// and its goroutine drains in the background.
func withContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
