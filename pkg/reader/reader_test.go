package reader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "rfm-score/pkg/errors"
	"rfm-score/pkg/models"
)

const sample = `USERID,ORDERDATE,ORDERID,AMOUNTINFO
142074,2016-01-01,4196439032,9399
56927,2016-01-01,4198324983,8799
87058,2016-01-01,4191287687,649
136104,2016-01-01,,1
`

func TestRead_KeepsRequiredColumns(t *testing.T) {
	rows, err := Read(strings.NewReader(sample), "USERID")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "142074", rows[0].CustomerID)
	assert.Equal(t, "2016-01-01", rows[0].Fields[models.ColOrderDate])
	assert.Equal(t, "4196439032", rows[0].Fields[models.ColOrderID])
	assert.Equal(t, "9399", rows[0].Fields[models.ColAmountInfo])
	assert.Equal(t, "", rows[3].Fields[models.ColOrderID])
}

func TestRead_ShortLineAndBOM(t *testing.T) {
	in := "\ufeffUSERID,ORDERDATE,ORDERID,AMOUNTINFO\nU1,2016-01-01\n"
	rows, err := Read(strings.NewReader(in), "USERID")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "U1", rows[0].CustomerID)
	assert.Equal(t, "", rows[0].Fields[models.ColAmountInfo])
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("USERID,ORDERDATE,AMOUNTINFO\nU1,2016-01-01,10\n"), "USERID")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInput))
	assert.Contains(t, err.Error(), "ORDERID")
}

func TestRead_MissingIndexColumn(t *testing.T) {
	_, err := Read(strings.NewReader(sample), "CUSTOMER")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInput))
}

func TestRead_EmptyFile(t *testing.T) {
	_, err := Read(strings.NewReader(""), "USERID")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInput))
}

func TestReadFile_Unreadable(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv"), "USERID")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInput))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	rows, err := ReadFile(path, "USERID")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestAuditRows(t *testing.T) {
	in := `USERID,ORDERDATE,ORDERID,AMOUNTINFO
U1,2016-01-01,1,10
,2016-01-02,2,NaN
U3,NA,3,
U4,2016-01-04,4,20
`
	rows, err := Read(strings.NewReader(in), "USERID")
	require.NoError(t, err)

	a := AuditRows(rows, "USERID", 2)
	assert.Equal(t, 4, a.Rows)
	assert.Equal(t, 2, a.RowsWithMissing)
	assert.Equal(t, 1, a.MissingByColumn["USERID"])
	assert.Equal(t, 1, a.MissingByColumn[models.ColOrderDate])
	assert.Equal(t, 2, a.MissingByColumn[models.ColAmountInfo])
	assert.Equal(t, 0, a.MissingByColumn[models.ColOrderID])
	assert.Len(t, a.Preview, 2)
	assert.Equal(t, []string{"USERID", models.ColOrderDate, models.ColAmountInfo}, a.NAColumns("USERID"))
}
