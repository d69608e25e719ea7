// Package process — реестр типов процессов и их конвейеры шагов.
//
// Каждый ProcessType описывается Definition: binding в транспорте,
// декодер конфигурации и упорядоченный список шагов. Реестр
// заполняется при старте сервиса; неизвестный тип — явная ошибка,
// а не тихий пропуск.
package process
