package reports

import (
	"context"

	"github.com/google/uuid"
)

// Severity уровня сообщения отчёта.
const (
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityError = "ERROR"
)

// Node — узел дерева отчёта о выполнении.
//
// Шаги конвейера накапливают под-отчёты в одном дереве на execution;
// дерево целиком отправляется во внешний report store после каждого
// успешного шага (см. executor.StepExecutor).
type Node struct {
	// Message — сообщение узла.
	Message string `json:"message"`

	// Severity — уровень: INFO, WARN, ERROR.
	Severity string `json:"severity,omitempty"`

	// SubReports — дочерние узлы в порядке добавления.
	SubReports []*Node `json:"sub_reports,omitempty"`
}

// NewNode создаёт корневой узел отчёта.
func NewNode(message string) *Node {
	return &Node{Message: message, Severity: SeverityInfo}
}

// Add добавляет дочерний узел и возвращает его.
func (n *Node) Add(message, severity string) *Node {
	child := &Node{Message: message, Severity: severity}
	n.SubReports = append(n.SubReports, child)
	return child
}

// Store — внешнее хранилище отчётов.
//
// Control plane знает об отчёте только его id; дерево живёт
// в report store и читается/удаляется по требованию.
type Store interface {
	// SendReport публикует (или замещает) дерево отчёта.
	SendReport(ctx context.Context, reportID uuid.UUID, root *Node) error

	// GetReport возвращает дерево отчёта по id.
	GetReport(ctx context.Context, reportID uuid.UUID) (*Node, error)

	// DeleteReport удаляет отчёт по id.
	DeleteReport(ctx context.Context, reportID uuid.UUID) error
}
