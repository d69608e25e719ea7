// Package reports — дерево отчёта о выполнении и клиент к report store.
package reports
