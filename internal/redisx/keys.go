package redisx

import "time"

const (
	// Dashboard session: session:{session_id} -> JSON session.Session
	KeySession = "session:%s"

	// Order form snapshot: order_form:{session_id}:{form_id} -> JSON customers+items
	KeyOrderForm = "order_form:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// One submission per form at a time: submit_lock:{session_id}:{form_id}
	KeySubmitLock = "submit_lock:%s:%s"
)

var (
	TTLSession    = 12 * time.Hour
	TTLOrderForm  = 30 * time.Minute
	TTLDedup      = 48 * time.Hour
	TTLSubmitLock = 30 * time.Second
)
