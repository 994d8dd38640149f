// Package http exposes the availability engine over JSON.
//
// Every request except GET /healthz must carry the acting minister in the
// X-Minister-ID header; RequireMinister resolves it into a principal.
//
// Ministers:
//   - GET /window?year=&month=: whether the month is editable now and why.
//   - POST /drafts: opens a draft for {"year","month"}; administrators may pass
//     "minister_id" to edit on behalf of someone else.
//   - GET /drafts/{id}, DELETE /drafts/{id}: inspect or close a draft.
//   - POST /drafts/{id}/toggle {"date","slot_id"}, POST /drafts/{id}/toggle-extra
//     {"extra_id"}, POST /drafts/{id}/recurrence {"weekday","slot_id","mode"}.
//   - POST /drafts/{id}/discard resets the draft to the stored baseline.
//   - POST /drafts/{id}/commit persists the pending diff.
//   - GET /occupancy?year=&month=: per-mass fill of the month.
//
// Administrators:
//   - /slots, /extras, /blocks: catalog maintenance. DELETE on slots and extras
//     deactivates them.
//   - /window/config, /window/overrides: window policy and manual releases.
//   - /ministers: registration.
//   - GET /reports/coverage?status=ALL|LOW|FULL|OK, GET /reports/ministers.
//
// Rejections carry an error_code (WINDOW_CLOSED, SLOT_BLOCKED,
// CAPACITY_EXCEEDED, UNKNOWN_TARGET, STORAGE_UNAVAILABLE, FORBIDDEN) and a
// Portuguese message. DTOs live next to their handlers.
package http
