package engine

import "context"

// NameResolver satisfies internal/api's NameResolver interface. It is a
// thin adapter: when enabled it posts the resourceId itself as the name to
// the engine's /{nameEndpoint}/{resourceId} route and reports the
// resourceId back as the name. The engine's response body is not read, so
// no other name is ever resolved.
type NameResolver struct {
	client  *Client
	enabled bool
}

// NewNameResolver builds a NameResolver. When enabled is false,
// ResolveAndBind is a no-op that reports the resourceId itself as the
// name, matching spec §9's default-off behavior for updateAppNameAtBinding.
func NewNameResolver(client *Client, enabled bool) *NameResolver {
	return &NameResolver{client: client, enabled: enabled}
}

// ResolveAndBind pushes resourceID as its own name to the engine when
// enabled, returning the name it settled on.
func (r *NameResolver) ResolveAndBind(resourceID string) (string, error) {
	if !r.enabled {
		return resourceID, nil
	}
	if err := r.client.RequestNameBinding(context.Background(), resourceID, resourceID); err != nil {
		return "", err
	}
	return resourceID, nil
}
