package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionType(t *testing.T) {
	assert.Equal(t, "TopUp", TopUp.String())
	assert.Equal(t, "Unknown", TransactionType(9).String())

	assert.True(t, Bonus.Valid())
	assert.False(t, TransactionType(0).Valid())

	assert.True(t, Refund.Credits())
	assert.False(t, Payment.Credits())
	assert.False(t, Withdrawal.Credits())
}
