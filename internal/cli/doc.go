// Package cli реализует инструмент командной строки Gridflow.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Gridflow API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для запуска процессов и просмотра executions.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Gridflow API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	executions, err := client.ListExecutions()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: gridflow execution list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - execution: list, submit, show, steps, reports, results, delete
//
// Группа создаётся через фабричную функцию NewExecutionCmd,
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
