// Package worker — сервис выполнения процессов.
//
// Worker потребляет run-запросы из очередей RabbitMQ, прогоняет
// конвейер шагов и публикует переходы статусов. Долговечного
// состояния у worker'а нет.
package worker
