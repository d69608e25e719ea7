// Package api — REST API control plane.
//
// Структура:
//   - handler.go           — Handler и его зависимости
//   - routes.go            — маршруты
//   - execution_handler.go — операции над executions
//   - dto.go               — request/response структуры
//   - response.go          — envelope'ы ответов и коды ошибок
//   - middleware.go        — Recovery и Logging
package api
