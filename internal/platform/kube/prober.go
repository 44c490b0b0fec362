package kube

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/imamik/rosahcp/internal/gateway"
	"github.com/imamik/rosahcp/internal/graph"
)

// Prober reads the observed condition of applied objects. It implements
// gateway.StatusProber.
type Prober struct {
	dynamicClient dynamic.Interface
	clientset     kubernetes.Interface
}

// NewProberFromKubeconfig creates a Prober from kubeconfig bytes.
func NewProberFromKubeconfig(kubeconfig []byte) (*Prober, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}
	return &Prober{dynamicClient: dynamicClient, clientset: clientset}, nil
}

// NewProberFromClients creates a Prober from pre-configured clients.
// Useful for testing with fake clients.
func NewProberFromClients(dynamicClient dynamic.Interface, clientset kubernetes.Interface) *Prober {
	return &Prober{dynamicClient: dynamicClient, clientset: clientset}
}

// Probe fetches the referenced object and maps its reported conditions to an
// observation. An object that does not exist yet is still converging.
func (p *Prober) Probe(ctx context.Context, spec graph.NodeSpec, remoteRef string) (gateway.Observation, error) {
	ref, err := parseRef(remoteRef)
	if err != nil {
		return gateway.Observation{}, err
	}

	ri := p.dynamicClient.Resource(ref.GVR)
	var obj *unstructured.Unstructured
	if ref.Namespace != "" {
		obj, err = ri.Namespace(ref.Namespace).Get(ctx, ref.Name, metav1.GetOptions{})
	} else {
		obj, err = ri.Get(ctx, ref.Name, metav1.GetOptions{})
	}
	if err != nil {
		if apierrors.IsNotFound(err) {
			return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "waiting for resource to appear"}, nil
		}
		return gateway.Observation{}, fmt.Errorf("failed to get %s %q: %w", ref.GVR.Resource, ref.Name, err)
	}

	if len(spec.Capabilities) == 0 {
		return evaluateGeneric(obj), nil
	}

	// Every capability must report ready; a single failure is terminal.
	var pending *gateway.Observation
	for _, cap := range spec.Capabilities {
		obs, err := p.evaluateCapability(ctx, cap, spec, obj)
		if err != nil {
			return gateway.Observation{}, err
		}
		switch obs.Outcome {
		case gateway.OutcomeFailed:
			return obs, nil
		case gateway.OutcomeObserving:
			if pending == nil {
				pending = &obs
			}
		}
	}
	if pending != nil {
		return *pending, nil
	}
	return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: "all readiness checks passed"}, nil
}

func (p *Prober) evaluateCapability(ctx context.Context, cap graph.Capability, spec graph.NodeSpec, obj *unstructured.Unstructured) (gateway.Observation, error) {
	switch cap {
	case graph.CapHasCRD:
		return evaluateCondition(obj, "Established"), nil
	case graph.CapHasRoute:
		return evaluateCondition(obj, "Admitted"), nil
	case graph.CapHasPod:
		return evaluateReplicas(obj), nil
	case graph.CapHasService:
		return p.evaluateEndpoints(ctx, obj.GetNamespace(), spec.Name)
	}
	return gateway.Observation{}, fmt.Errorf("unknown capability %q on resource %q", cap, spec.Name)
}

// evaluateGeneric maps the object's own conditions or phase to an outcome.
func evaluateGeneric(obj *unstructured.Unstructured) gateway.Observation {
	for _, condType := range []string{"Degraded", "Failed"} {
		if c, ok := findCondition(obj, condType); ok && c.status == "True" {
			return gateway.Observation{Outcome: gateway.OutcomeFailed, Detail: c.detail()}
		}
	}
	for _, condType := range []string{"Ready", "Available"} {
		if c, ok := findCondition(obj, condType); ok {
			if c.status == "True" {
				return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: c.detail()}
			}
			return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: c.detail()}
		}
	}

	phase, found, _ := unstructured.NestedString(obj.Object, "status", "phase")
	if found {
		switch phase {
		case "Active", "Running", "Ready", "Succeeded", "Bound":
			return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: phase}
		case "Failed", "Error":
			return gateway.Observation{Outcome: gateway.OutcomeFailed, Detail: phase}
		default:
			return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: phase}
		}
	}
	return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "no status reported yet"}
}

// evaluateCondition treats one named condition as the resource's verdict:
// True is ready, False is a terminal failure, Unknown or absent keeps
// observing.
func evaluateCondition(obj *unstructured.Unstructured, condType string) gateway.Observation {
	c, ok := findCondition(obj, condType)
	if !ok {
		return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: fmt.Sprintf("condition %s not reported yet", condType)}
	}
	switch c.status {
	case "True":
		return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: c.detail()}
	case "False":
		return gateway.Observation{Outcome: gateway.OutcomeFailed, Detail: c.detail()}
	}
	return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: c.detail()}
}

// evaluateReplicas compares readyReplicas against the desired replica count,
// defaulting to one when the manifest does not set it.
func evaluateReplicas(obj *unstructured.Unstructured) gateway.Observation {
	desired, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	if !found || desired <= 0 {
		desired = 1
	}
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")
	if ready >= desired {
		return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: fmt.Sprintf("%d/%d replicas ready", ready, desired)}
	}
	return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: fmt.Sprintf("%d/%d replicas ready", ready, desired)}
}

// evaluateEndpoints reports ready once the backing service has at least one
// ready endpoint address.
func (p *Prober) evaluateEndpoints(ctx context.Context, namespace, serviceName string) (gateway.Observation, error) {
	if namespace == "" {
		namespace = "default"
	}
	endpoints, err := p.clientset.CoreV1().Endpoints(namespace).Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "service has no endpoints yet"}, nil
		}
		return gateway.Observation{}, fmt.Errorf("failed to get endpoints for %s/%s: %w", namespace, serviceName, err)
	}
	for _, subset := range endpoints.Subsets {
		if len(subset.Addresses) > 0 {
			return gateway.Observation{Outcome: gateway.OutcomeReady, Detail: "service endpoints ready"}, nil
		}
	}
	return gateway.Observation{Outcome: gateway.OutcomeObserving, Detail: "service endpoints not ready"}, nil
}

type condition struct {
	condType string
	status   string
	reason   string
	message  string
}

func (c condition) detail() string {
	switch {
	case c.reason != "" && c.message != "":
		return fmt.Sprintf("%s: %s", c.reason, c.message)
	case c.reason != "":
		return c.reason
	case c.message != "":
		return c.message
	}
	return fmt.Sprintf("%s=%s", c.condType, c.status)
}

// findCondition scans status.conditions for the given type.
func findCondition(obj *unstructured.Unstructured, condType string) (condition, bool) {
	conds, found, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if !found {
		return condition{}, false
	}
	for _, raw := range conds {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _ := m["type"].(string); t == condType {
			status, _ := m["status"].(string)
			reason, _ := m["reason"].(string)
			message, _ := m["message"].(string)
			return condition{condType: condType, status: status, reason: reason, message: message}, true
		}
	}
	return condition{}, false
}
