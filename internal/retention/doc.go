// Package retention — фоновое удаление старых записей execution.
package retention
