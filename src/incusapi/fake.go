package incusapi

import (
	"context"
	"os"
	"sort"
	"time"
)

// FakeClient is an in-memory implementation for unit tests.
//
// Failure injection: set one of the Fail* fields to make the corresponding
// operation return that error. StageDelay makes the snapshot, publish and
// export calls block for the given duration (or until ctx expires), which is
// how timeout behaviour is exercised.
type FakeClient struct {
	ServerVersionStr string

	// Projects maps project name to instance names.
	Projects map[string][]string

	// Snapshots maps project/instance to snapshot names.
	Snapshots map[string][]string
	// Images maps project to image alias names.
	Images map[string][]string

	FailServer         error
	FailListProjects   error
	FailListInstances  error
	FailCreateSnapshot error
	FailPublish        error
	FailExport         error
	FailDeleteSnapshot error
	FailDeleteImage    error

	StageDelay time.Duration

	// ExportContent is written to the destination file on export.
	ExportContent []byte

	// Call records, newest last.
	DeletedSnapshots []string
	DeletedImages    []string
	Exports          []string
}

func NewFake() *FakeClient {
	return &FakeClient{
		ServerVersionStr: "6.0",
		Projects:         map[string][]string{},
		Snapshots:        map[string][]string{},
		Images:           map[string][]string{},
		ExportContent:    []byte("fake-export"),
	}
}

// AddInstance registers an instance under a project.
func (f *FakeClient) AddInstance(project, name string) {
	f.Projects[project] = append(f.Projects[project], name)
}

func (f *FakeClient) wait(ctx context.Context) error {
	if f.StageDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.StageDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *FakeClient) Server(ctx context.Context) (ServerInfo, error) {
	if f.FailServer != nil {
		return ServerInfo{}, f.FailServer
	}
	return ServerInfo{ServerVersion: f.ServerVersionStr}, nil
}

func (f *FakeClient) ListProjects(ctx context.Context) ([]string, error) {
	if f.FailListProjects != nil {
		return nil, f.FailListProjects
	}
	out := make([]string, 0, len(f.Projects))
	for p := range f.Projects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

func (f *FakeClient) ListInstances(ctx context.Context, project string) ([]Instance, error) {
	if f.FailListInstances != nil {
		return nil, f.FailListInstances
	}
	names := append([]string(nil), f.Projects[project]...)
	sort.Strings(names)
	out := make([]Instance, 0, len(names))
	for _, n := range names {
		out = append(out, Instance{Name: n, Project: project})
	}
	return out, nil
}

func (f *FakeClient) CreateSnapshot(ctx context.Context, project, instance, name string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.FailCreateSnapshot != nil {
		return f.FailCreateSnapshot
	}
	key := project + "/" + instance
	for _, s := range f.Snapshots[key] {
		if s == name {
			return &ConflictError{Resource: "snapshot", Name: name}
		}
	}
	f.Snapshots[key] = append(f.Snapshots[key], name)
	return nil
}

func (f *FakeClient) DeleteSnapshot(ctx context.Context, project, instance, name string) error {
	if f.FailDeleteSnapshot != nil {
		return f.FailDeleteSnapshot
	}
	key := project + "/" + instance
	for i, s := range f.Snapshots[key] {
		if s == name {
			f.Snapshots[key] = append(f.Snapshots[key][:i], f.Snapshots[key][i+1:]...)
			f.DeletedSnapshots = append(f.DeletedSnapshots, key+"/"+name)
			return nil
		}
	}
	return &NotFoundError{Resource: "snapshot", Name: name}
}

func (f *FakeClient) ListSnapshots(ctx context.Context, project, instance string) ([]string, error) {
	return append([]string(nil), f.Snapshots[project+"/"+instance]...), nil
}

func (f *FakeClient) PublishImage(ctx context.Context, project, instance, snapshot, alias, compression string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.FailPublish != nil {
		return f.FailPublish
	}
	found := false
	for _, s := range f.Snapshots[project+"/"+instance] {
		if s == snapshot {
			found = true
		}
	}
	if !found {
		return &NotFoundError{Resource: "snapshot", Name: snapshot}
	}
	for _, a := range f.Images[project] {
		if a == alias {
			return &ConflictError{Resource: "image", Name: alias}
		}
	}
	f.Images[project] = append(f.Images[project], alias)
	return nil
}

func (f *FakeClient) ExportImage(ctx context.Context, project, alias, destPath string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.FailExport != nil {
		return f.FailExport
	}
	found := false
	for _, a := range f.Images[project] {
		if a == alias {
			found = true
		}
	}
	if !found {
		return &NotFoundError{Resource: "image", Name: alias}
	}
	if err := os.WriteFile(destPath, f.ExportContent, 0o644); err != nil {
		return err
	}
	f.Exports = append(f.Exports, destPath)
	return nil
}

func (f *FakeClient) DeleteImage(ctx context.Context, project, alias string) error {
	if f.FailDeleteImage != nil {
		return f.FailDeleteImage
	}
	for i, a := range f.Images[project] {
		if a == alias {
			f.Images[project] = append(f.Images[project][:i], f.Images[project][i+1:]...)
			f.DeletedImages = append(f.DeletedImages, project+"/"+alias)
			return nil
		}
	}
	return &NotFoundError{Resource: "image", Name: alias}
}

func (f *FakeClient) ListImageAliases(ctx context.Context, project string) ([]string, error) {
	return append([]string(nil), f.Images[project]...), nil
}
