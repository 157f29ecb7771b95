package log_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenlabs/chainflow/pkg/api"
	"github.com/lumenlabs/chainflow/pkg/log"
)

type errStub string

func (e errStub) Error() string { return string(e) }

func TestFlowID(t *testing.T) {
	attr := log.FlowID(api.FlowID("flow-123"))
	assertAttrEqual(t, attr, "flow_id", "flow-123")
}

func TestStepID(t *testing.T) {
	attr := log.StepID(api.StepID("step-abc"))
	assertAttrEqual(t, attr, "step_id", "step-abc")
}

func TestStatus(t *testing.T) {
	attr := log.Status(api.FlowCompleted)
	assertAttrEqual(t, attr, "status", "completed")
}

func TestChain(t *testing.T) {
	attr := log.Chain(api.Chain("B"))
	assertAttrEqual(t, attr, "chain", "B")
}

func TestTxHash(t *testing.T) {
	attr := log.TxHash("0xabc")
	assertAttrEqual(t, attr, "tx_hash", "0xabc")
}

func TestAccount(t *testing.T) {
	attr := log.Account("ak_caller")
	assertAttrEqual(t, attr, "account", "ak_caller")
}

func TestError(t *testing.T) {
	attr := log.Error(nil)
	assertAttrEqual(t, attr, "error", "")

	attr = log.Error(errStub("boom"))
	assertAttrEqual(t, attr, "error", "boom")
}

func TestErrorString(t *testing.T) {
	attr := log.ErrorString("badness")
	assertAttrEqual(t, attr, "error", "badness")
}

func assertAttrEqual(t *testing.T, attr slog.Attr, key, value string) {
	t.Helper()
	assert.Equal(t, key, attr.Key)
	assert.Equal(t, value, attr.Value.String())
}
