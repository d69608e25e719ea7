// Package notify — протокол уведомлений worker → control plane.
//
// Определяет три вида событий (ExecutionStatusUpdate, StepStatusUpdate,
// StepsStatusesUpdate в виде StepsSnapshot) и интерфейс Notificator.
// AMQPNotificator — реализация поверх internal/mq.
package notify
