package flow

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifiers are unique within a session in practice, not cryptographically.
// Shape: <prefix>_<unix millis>_<7 random chars>.

func NewNodeID() string     { return newID("node") }
func NewEdgeID() string     { return newID("edge") }
func NewWorkflowID() string { return newID("wf") }

func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return prefix + "_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}
