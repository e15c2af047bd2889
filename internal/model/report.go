package model

import "time"

// OrderFailure records why one order was not delivered during a flush
type OrderFailure struct {
	LocalID int64         `json:"localId"`
	Kind    SyncErrorKind `json:"kind"`
	Status  int           `json:"status,omitempty"`
	Reason  string        `json:"reason"`
}

// FlushReport summarizes one outbox flush for a tenant
type FlushReport struct {
	TenantID  string         `json:"tenantId"`
	Attempted int            `json:"attempted"`
	Delivered int            `json:"delivered"`
	Failed    int            `json:"failed"`
	Failures  []OrderFailure `json:"failures,omitempty"`
}

// RecordFailure counts a failed delivery and keeps its reason
func (r *FlushReport) RecordFailure(localID int64, err error) {
	r.Failed++
	r.Failures = append(r.Failures, OrderFailure{
		LocalID: localID,
		Kind:    KindOf(err),
		Status:  StatusOf(err),
		Reason:  err.Error(),
	})
}

// RecordDelivered counts a confirmed delivery
func (r *FlushReport) RecordDelivered() {
	r.Delivered++
}

// HasStoreFailure reports whether any failure needs operator attention
func (r *FlushReport) HasStoreFailure() bool {
	for _, f := range r.Failures {
		if f.Kind == KindStoreFailure {
			return true
		}
	}
	return false
}

// SyncState is the orchestrator state of one tenant session
type SyncState string

const (
	StateIdle    SyncState = "idle"
	StateSyncing SyncState = "syncing"
)

// Trigger names what started a sync cycle
type Trigger string

const (
	TriggerTimer        Trigger = "timer"
	TriggerForeground   Trigger = "foreground"
	TriggerConnectivity Trigger = "connectivity"
	TriggerManual       Trigger = "manual"
)

// CycleReport is the outcome of one catalog refresh plus outbox flush
type CycleReport struct {
	TenantID     string        `json:"tenantId"`
	Trigger      Trigger       `json:"trigger"`
	StartedAt    time.Time     `json:"startedAt"`
	FinishedAt   time.Time     `json:"finishedAt"`
	CatalogItems int           `json:"catalogItems"`
	CatalogError string        `json:"catalogError,omitempty"`
	CatalogKind  SyncErrorKind `json:"catalogKind,omitempty"`
	Flush        *FlushReport  `json:"flush,omitempty"`
	FlushError   string        `json:"flushError,omitempty"`
	FlushKind    SyncErrorKind `json:"flushKind,omitempty"`
}

// Clean reports whether both steps fully succeeded
func (c CycleReport) Clean() bool {
	return c.CatalogError == "" && c.FlushError == "" && (c.Flush == nil || c.Flush.Failed == 0)
}

// StoreFailure reports whether the cycle hit a local store failure
func (c CycleReport) StoreFailure() bool {
	if c.CatalogKind == KindStoreFailure || c.FlushKind == KindStoreFailure {
		return true
	}
	return c.Flush != nil && c.Flush.HasStoreFailure()
}
