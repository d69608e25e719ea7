// Package executor — выполнение конвейера процесса на стороне worker'а.
//
// ProcessExecutor ведёт машину состояний execution и его шагов,
// StepExecutor выполняет отдельные шаги и публикует их переходы.
// Состояние на стороне worker'а эфемерно: единственный долговечный
// след выполнения — поток уведомлений в control plane.
package executor
