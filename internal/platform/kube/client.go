package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
)

const fieldManager = "rosahcp"

// Gateway applies resource manifests to the management cluster with
// server-side apply. It implements gateway.ApplyGateway.
type Gateway struct {
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper
}

// NewGatewayFromKubeconfig creates a Gateway from kubeconfig bytes.
func NewGatewayFromKubeconfig(kubeconfig []byte) (*Gateway, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	groupResources, err := restmapper.GetAPIGroupResources(discoveryClient)
	if err != nil {
		return nil, fmt.Errorf("failed to get API group resources: %w", err)
	}

	return &Gateway{
		dynamicClient: dynamicClient,
		mapper:        restmapper.NewDiscoveryRESTMapper(groupResources),
	}, nil
}

// NewGatewayFromClients creates a Gateway from pre-configured clients.
// Useful for testing with fake clients.
func NewGatewayFromClients(dynamicClient dynamic.Interface, mapper meta.RESTMapper) *Gateway {
	return &Gateway{dynamicClient: dynamicClient, mapper: mapper}
}

// Submit resolves the spec's manifest to an unstructured object and applies
// it. A pre-existing object is reported as AlreadyExists; the apply still
// runs so drifted fields converge back to the spec.
func (g *Gateway) Submit(ctx context.Context, spec graph.NodeSpec) (gateway.Acceptance, error) {
	obj, err := g.resolveObject(spec)
	if err != nil {
		return gateway.Acceptance{}, err
	}

	gvk := obj.GroupVersionKind()
	mapping, err := g.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return gateway.Acceptance{}, gateway.Reject("no REST mapping for %v: %v", gvk, err)
	}

	ri := g.resourceInterface(mapping, obj.GetNamespace())

	exists := true
	if _, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{}); err != nil {
		if !apierrors.IsNotFound(err) {
			return gateway.Acceptance{}, fmt.Errorf("failed to check for existing %s %q: %w", gvk.Kind, obj.GetName(), err)
		}
		exists = false
	}

	data, err := obj.MarshalJSON()
	if err != nil {
		return gateway.Acceptance{}, fmt.Errorf("failed to marshal object: %w", err)
	}

	_, err = ri.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
		FieldManager: fieldManager,
	})
	if err != nil {
		if apierrors.IsInvalid(err) || apierrors.IsBadRequest(err) || apierrors.IsForbidden(err) {
			return gateway.Acceptance{}, gateway.Reject("%v", err)
		}
		return gateway.Acceptance{}, fmt.Errorf("server-side apply failed: %w", err)
	}

	ref := objectRef{GVR: mapping.Resource, Namespace: obj.GetNamespace(), Name: obj.GetName()}
	return gateway.Acceptance{RemoteRef: ref.String(), AlreadyExists: exists}, nil
}

// resolveObject decodes the spec's manifest, or synthesizes one for the
// kinds that are fully described by the spec itself.
func (g *Gateway) resolveObject(spec graph.NodeSpec) (*unstructured.Unstructured, error) {
	if len(spec.Manifest) == 0 {
		if spec.Kind == graph.KindNamespace {
			return namespaceObject(spec.Name), nil
		}
		return nil, gateway.Reject("resource %q of kind %s has no manifest", spec.Name, spec.Kind)
	}

	jsonData, err := sigsyaml.YAMLToJSON(spec.Manifest)
	if err != nil {
		return nil, gateway.Reject("resource %q: malformed manifest: %v", spec.Name, err)
	}

	var obj unstructured.Unstructured
	if err := obj.UnmarshalJSON(jsonData); err != nil {
		return nil, gateway.Reject("resource %q: manifest is not an object: %v", spec.Name, err)
	}
	if obj.GetKind() == "" {
		return nil, gateway.Reject("resource %q: manifest has no kind", spec.Name)
	}
	if obj.GetName() == "" {
		obj.SetName(spec.Name)
	}
	if obj.GetNamespace() == "" && spec.Namespace != "" {
		obj.SetNamespace(spec.Namespace)
	}
	return &obj, nil
}

func (g *Gateway) resourceInterface(mapping *meta.RESTMapping, namespace string) dynamic.ResourceInterface {
	ri := g.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		if namespace == "" {
			namespace = "default"
		}
		return ri.Namespace(namespace)
	}
	return ri
}

func namespaceObject(name string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Namespace",
		"metadata": map[string]interface{}{
			"name": name,
		},
	}}
}
