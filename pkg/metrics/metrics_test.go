// Copyright (c) 2025 TaskVault Project
//
// This file is part of go-taskvault.
//
// go-taskvault is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@taskvault.dev for commercial licensing options.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpEncrypt, StatusSuccess))
	RecordOperation(OpEncrypt, StatusSuccess)
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpEncrypt, StatusSuccess))

	assert.Equal(t, before+1, after)
}

func TestRecordErrorCountsBoth(t *testing.T) {
	errBefore := testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpDecrypt, "decryption_failed"))
	opBefore := testutil.ToFloat64(OperationsTotal.WithLabelValues(OpDecrypt, StatusError))

	RecordError(OpDecrypt, "decryption_failed")

	assert.Equal(t, errBefore+1, testutil.ToFloat64(ErrorsTotal.WithLabelValues(OpDecrypt, "decryption_failed")))
	assert.Equal(t, opBefore+1, testutil.ToFloat64(OperationsTotal.WithLabelValues(OpDecrypt, StatusError)))
}

func TestRecordEscrowUnlock(t *testing.T) {
	before := testutil.ToFloat64(EscrowUnlocksTotal.WithLabelValues(OpGrantContentKey))
	RecordEscrowUnlock(OpGrantContentKey)
	after := testutil.ToFloat64(EscrowUnlocksTotal.WithLabelValues(OpGrantContentKey))

	assert.Equal(t, before+1, after)
}

func TestTimeOperation(t *testing.T) {
	done := TimeOperation(OpEncrypt)
	assert.NotPanics(t, done)
}
