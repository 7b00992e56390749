package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldType(t *testing.T) {
	require.Equal(t, "Double", FieldDouble.String())
	require.Equal(t, "Vector", FieldVector.String())
	require.Equal(t, "Unknown", FieldType(15).String())

	require.True(t, FieldVector.IsValid())
	require.False(t, FieldType(15).IsValid())

	require.True(t, FieldInt32.IsNumeric())
	require.False(t, FieldReal.IsNumeric())
	require.False(t, FieldString.IsNumeric())
}

func TestMsgAndDataType(t *testing.T) {
	require.Equal(t, "Update", MsgUpdate.String())
	require.Equal(t, "DBTable", MsgDBTable.String())
	require.False(t, MsgType(18).IsValid())

	require.Equal(t, DataType('f'), DataFieldList)
	require.Equal(t, "FieldList", DataFieldList.String())
	require.Equal(t, "Unknown", DataType('z').String())
}
