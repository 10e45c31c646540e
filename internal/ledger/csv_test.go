package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/smurfing-engine/pkg/models"
)

func TestParse_HeaderAliasesAndNormalization(t *testing.T) {
	input := "\ufeffTx Hash,Block Number,Sender,Recipient,Amount,Fee,Age (seconds),Sender Type,Recipient Type,From Tx Count\n" +
		"0x01,100,0xAAA,0xBbB,2.5,0.05,3600,Exchange,wallet,1500\n" +
		"0x02,101,0xbbb,0xccc,0,0,60,,,\n"

	res, err := Parse(strings.NewReader(input), Options{ValueDecimals: 6})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 2)
	assert.Empty(t, res.Skipped)

	tx := res.Transactions[0]
	assert.Equal(t, "0x01", tx.Hash)
	assert.Equal(t, int64(100), tx.Block)
	assert.Equal(t, "0xaaa", tx.From)
	assert.Equal(t, "0xbbb", tx.To)
	assert.Equal(t, 2.5, tx.Value)
	assert.InDelta(t, 0.02, tx.FeeRatio, 1e-12)
	assert.Equal(t, int64(3600), tx.Age)
	assert.Equal(t, models.EntityType("exchange"), tx.FromEntity)
	assert.Equal(t, 1500, tx.FromTxCount)
	assert.True(t, decimal.NewFromInt(2500000).Equal(tx.RawValue))

	// zero value keeps a zero fee ratio
	assert.Zero(t, res.Transactions[1].FeeRatio)
}

func TestParse_SkipsBadRows(t *testing.T) {
	input := "hash,from,to,value,age\n" +
		"ok,a,b,1,10\n" +
		"neg,a,b,-1,10\n" +
		"nan,a,b,abc,10\n" +
		"nosender,,b,1,10\n" +
		"badage,a,b,1,yesterday\n" +
		",,,,\n" +
		",c,d,4,20\n"

	res, err := Parse(strings.NewReader(input), Options{})
	require.NoError(t, err)

	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "ok", res.Transactions[0].Hash)
	assert.Equal(t, "row-8", res.Transactions[1].Hash)

	require.Len(t, res.Skipped, 4)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Equal(t, "negative value", res.Skipped[0].Reason)
	assert.Contains(t, res.Skipped[3].Error(), "line 6")
}

func TestParse_RawValueColumnWins(t *testing.T) {
	input := "from,to,value,value_wei\na,b,1.5,1500000000000000000\n"
	res, err := Parse(strings.NewReader(input), Options{ValueDecimals: 2})
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Equal(t, "1500000000000000000", res.Transactions[0].RawValue.String())
}

func TestParse_MissingRequiredColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("hash,from,value\nx,a,1\n"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "to")

	_, err = Parse(strings.NewReader(""), Options{})
	assert.Error(t, err)
}

func TestParseFile_NotFound(t *testing.T) {
	_, err := ParseFile("/definitely/not/here.csv", Options{})
	assert.Error(t, err)
}
