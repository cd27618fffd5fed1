package incusapi

import "context"

// Instance identifies a backupable instance within a project.
type Instance struct {
	Name    string
	Project string
}

// ServerInfo exposes key server metadata we care about.
type ServerInfo struct {
	ServerVersion string
}

// Client is a narrow interface over the Incus API used by the backup
// pipeline. Keep it small and focused on what we actually need so it stays
// mockable. Every call takes a context; stage timeouts are enforced by the
// caller, not by the remote API.
type Client interface {
	// Server is used as the reachability probe before any work starts.
	Server(ctx context.Context) (ServerInfo, error)

	// Enumeration
	ListProjects(ctx context.Context) ([]string, error)
	ListInstances(ctx context.Context, project string) ([]Instance, error)

	// Snapshots (disk-only, remote-side)
	CreateSnapshot(ctx context.Context, project, instance, name string) error
	DeleteSnapshot(ctx context.Context, project, instance, name string) error
	ListSnapshots(ctx context.Context, project, instance string) ([]string, error)

	// Published images
	PublishImage(ctx context.Context, project, instance, snapshot, alias, compression string) error
	ExportImage(ctx context.Context, project, alias, destPath string) error
	DeleteImage(ctx context.Context, project, alias string) error
	ListImageAliases(ctx context.Context, project string) ([]string, error)
}

// NotFoundError reports a missing remote resource.
type NotFoundError struct{ Resource, Name string }

func (e *NotFoundError) Error() string { return e.Resource + " not found: " + e.Name }

// ConflictError reports a name collision on the remote side.
type ConflictError struct{ Resource, Name string }

func (e *ConflictError) Error() string { return e.Resource + " conflict: " + e.Name }
