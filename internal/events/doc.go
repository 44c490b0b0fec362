// Package events delivers job and node state transitions to subscribers
// without ever blocking the orchestrator.
//
// Each subscriber owns a bounded queue with drop-oldest overflow and a
// counter of dropped events. Delivery order is preserved per subscriber;
// nothing is guaranteed across subscribers.
package events
