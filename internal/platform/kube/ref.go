package kube

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// objectRef pins down one applied object so the prober can fetch it without
// re-resolving the manifest. Serialized into the node's remote reference.
type objectRef struct {
	GVR       schema.GroupVersionResource
	Namespace string
	Name      string
}

func (r objectRef) String() string {
	return strings.Join([]string{r.GVR.Group, r.GVR.Version, r.GVR.Resource, r.Namespace, r.Name}, ":")
}

func parseRef(s string) (objectRef, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[1] == "" || parts[2] == "" || parts[4] == "" {
		return objectRef{}, fmt.Errorf("malformed remote reference %q", s)
	}
	return objectRef{
		GVR:       schema.GroupVersionResource{Group: parts[0], Version: parts[1], Resource: parts[2]},
		Namespace: parts[3],
		Name:      parts[4],
	}, nil
}
