// Package record — долговечная запись о каждом execution на стороне
// control plane.
//
// Store обновляется уведомлениями worker'ов (см. internal/notify)
// и обслуживает чтение, выдачу отчётов и результатов и удаление
// execution с best-effort очисткой внешних артефактов.
package record
