// Package kube implements the apply gateway and status prober against a
// Kubernetes management cluster using server-side apply and condition
// inspection on unstructured objects.
package kube
