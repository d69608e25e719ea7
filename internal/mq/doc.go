// Package mq — транспортный слой поверх RabbitMQ.
//
// Содержит:
//   - Connection — соединение с автоматическим reconnect
//   - Publisher — публикация сообщений (run-запросы, уведомления о статусе)
//   - Consumer — потребление с ручным ack/nack
//   - SetupTopology — декларация обменников, очередей и привязок
//
// Топология: run-запросы маршрутизируются в отдельную очередь на каждый
// тип процесса (binding из process.Registry); все уведомления о статусе
// идут в одну очередь execution.status для Recorder'а.
//
// Транспорт даёт at-least-once доставку и не гарантирует порядок
// между сообщениями одного execution: потребители обязаны быть
// идемпотентными (см. internal/record).
package mq
