// Package cleanup — best-effort удаление внешних артефактов.
//
// Удаление execution сначала убирает его запись, затем пытается
// удалить внешние артефакты (результаты, отчёты). Ошибка одного
// артефакта не мешает попыткам удалить остальные; осиротевшие
// артефакты допускаются по контракту.
package cleanup
