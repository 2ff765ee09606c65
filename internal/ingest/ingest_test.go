package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/clusterpulse/internal/diag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validEntry = `{
	"ClusterName": "etl-nightly",
	"ClusterId": "j-1A2B3C",
	"CreationDateTime": "2026-03-01T10:00:00Z",
	"EndDateTime": "2026-03-01T15:30:00Z",
	"MinCapacityRemainingGB": 512.5,
	"MinYARNMemoryAvailablePercentage": 42,
	"MaxMemoryAllocatedMB": 800,
	"MaxMemoryTotalMB": 1000,
	"MaxMRUnhealthyNodes": 1,
	"State": "TERMINATED",
	"earliest_time": "ignored",
	"latest_time": "ignored"
}`

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestDecode(t *testing.T) {
	cases := []struct {
		name        string
		input       string
		wantCount   int
		wantErr     error
		wantInvalid int
		wantField   string
	}{
		{name: "single_object", input: validEntry, wantCount: 1, wantInvalid: -1},
		{name: "array", input: "[" + validEntry + "," + validEntry + "]", wantCount: 2, wantInvalid: -1},
		{name: "byte_order_mark", input: "\xEF\xBB\xBF" + validEntry, wantCount: 1, wantInvalid: -1},
		{name: "blank", input: "   \n", wantErr: ErrEmptyUpload},
		{name: "bom_only", input: "\xEF\xBB\xBF  ", wantErr: ErrEmptyUpload},
		{name: "empty_array", input: "[]", wantErr: ErrEmptyUpload},
		{name: "malformed", input: `{"ClusterName": `, wantErr: ErrInvalidFormat},
		{name: "malformed_array", input: `[{"ClusterName": "a"`, wantErr: ErrInvalidFormat},
		{name: "scalar", input: `"hello"`, wantErr: ErrInvalidFormat},
		{name: "array_of_scalars", input: `[1, 2]`, wantCount: 2, wantInvalid: 0},
		{name: "wrong_field_type", input: "[" + validEntry + `, {"ClusterName": 5}]`, wantCount: 2, wantInvalid: 1, wantField: "ClusterName"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raws, err := Decode([]byte(tc.input))
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, raws, tc.wantCount)
			for i, raw := range raws {
				if i != tc.wantInvalid {
					assert.NoError(t, raw.Err(), "entry %d", i)
					continue
				}
				var verr *ValidationError
				require.ErrorAs(t, raw.Err(), &verr)
				assert.Equal(t, tc.wantInvalid, verr.Index)
				assert.Equal(t, tc.wantField, verr.Field)
			}
		})
	}
}

func TestDecodeRequiresExactCasing(t *testing.T) {
	raws, err := Decode([]byte(`{"clustername": "a", "ClusterId": "j-1", "State": "RUNNING"}`))
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Nil(t, raws[0].ClusterName)

	_, err = Normalize(raws, Options{Now: fixedNow})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ClusterName", verr.Field)
}

func TestNormalizeConvertsFields(t *testing.T) {
	raws, err := Decode([]byte(validEntry))
	require.NoError(t, err)

	result, err := Normalize(raws, Options{Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	r := result.Records[0]
	assert.Equal(t, "etl-nightly", r.ClusterName)
	assert.Equal(t, "j-1A2B3C", r.ClusterID)
	assert.Equal(t, "TERMINATED", r.State)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), r.CreationTime)
	require.NotNil(t, r.EndTime)
	assert.Equal(t, time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC), *r.EndTime)
	assert.Equal(t, 512.5, r.RemainingCapacityGB)
	assert.Equal(t, 42.0, r.YarnAvailablePercent)
	assert.Equal(t, 800.0, r.AllocatedMemoryMB)
	assert.Equal(t, 1000.0, r.TotalMemoryMB)
	assert.Equal(t, 1.0, r.UnhealthyNodeCount)
	assert.Equal(t, "imported-1773144000000-0", r.ID)
	assert.Equal(t, result.BatchID, r.BatchID)
	assert.NotEmpty(t, result.BatchID)
}

func TestNormalizeDefaultsOptionalFields(t *testing.T) {
	raws, err := Decode([]byte(`{"ClusterName": "a", "ClusterId": "j-1", "State": "RUNNING", "CreationDateTime": "2026-03-01T10:00:00", "MaxMRUnhealthyNodes": null}`))
	require.NoError(t, err)

	result, err := Normalize(raws, Options{Now: fixedNow})
	require.NoError(t, err)
	r := result.Records[0]
	assert.Nil(t, r.EndTime)
	assert.Zero(t, r.RemainingCapacityGB)
	assert.Zero(t, r.UnhealthyNodeCount)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), r.CreationTime)
}

func TestNormalizeInvalidTimestampsWarnWithoutFailing(t *testing.T) {
	raws, err := Decode([]byte(`{"ClusterName": "a", "ClusterId": "j-1", "State": "RUNNING", "CreationDateTime": "yesterday", "EndDateTime": "soon"}`))
	require.NoError(t, err)

	sink := diag.NewCollector()
	result, err := Normalize(raws, Options{Now: fixedNow, Sink: sink})
	require.NoError(t, err)

	r := result.Records[0]
	assert.False(t, r.HasValidCreation())
	require.NotNil(t, r.EndTime)
	assert.False(t, r.HasValidEnd())

	warnings := sink.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, diag.CodeInvalidCreationTime, warnings[0].Code)
	assert.Equal(t, diag.CodeInvalidEndTime, warnings[1].Code)
}

func TestNormalizeRequiredFields(t *testing.T) {
	cases := []struct {
		name      string
		input     string
		wantField string
	}{
		{name: "missing_name", input: `{"ClusterId": "j-1", "State": "RUNNING"}`, wantField: "ClusterName"},
		{name: "null_id", input: `{"ClusterName": "a", "ClusterId": null, "State": "RUNNING"}`, wantField: "ClusterId"},
		{name: "blank_state", input: `{"ClusterName": "a", "ClusterId": "j-1", "State": "  "}`, wantField: "State"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raws, err := Decode([]byte(tc.input))
			require.NoError(t, err)
			_, err = Normalize(raws, Options{Now: fixedNow})
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
			assert.Equal(t, 0, verr.Index)
		})
	}
}

func TestNormalizePartialPolicy(t *testing.T) {
	input := "[" + validEntry + `, {"ClusterName": "b", "State": "RUNNING"}, ` + validEntry + "]"
	raws, err := Decode([]byte(input))
	require.NoError(t, err)

	sink := diag.NewCollector()
	result, err := Normalize(raws, Options{Policy: Partial, Now: fixedNow, Sink: sink})
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, "ClusterId", result.Rejected[0].Field)
	assert.Equal(t, "imported-1773144000000-2", result.Records[1].ID)
	assert.Equal(t, 1, sink.Len())
}

func TestNormalizeWrongFieldTypeFollowsPolicy(t *testing.T) {
	input := "[" + validEntry + `, {"ClusterName": "b", "ClusterId": "j-2", "State": "RUNNING", "MaxMemoryTotalMB": "1000"}]`
	raws, err := Decode([]byte(input))
	require.NoError(t, err)

	_, err = Normalize(raws, Options{Now: fixedNow})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Index)
	assert.Equal(t, "MaxMemoryTotalMB", verr.Field)

	store := NewStore()
	result, err := store.Import([]byte(input), Options{Policy: Partial, Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "j-1A2B3C", result.Records[0].ClusterID)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, "MaxMemoryTotalMB", result.Rejected[0].Field)
	assert.Equal(t, 1, store.Len())
}

func TestStorePartialImportWithNoValidRecords(t *testing.T) {
	store := NewStore()
	input := `[{"ClusterName": "a", "State": "RUNNING"}, {"ClusterName": 5}]`
	result, err := store.Import([]byte(input), Options{Policy: Partial, Now: fixedNow})
	require.NoError(t, err)
	assert.Empty(t, result.Records)
	assert.Len(t, result.Rejected, 2)
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, store.BatchCount())
}

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		input string
		want  time.Time
	}{
		{input: "2026-03-01T10:00:00Z", want: want},
		{input: "2026-03-01T12:00:00+02:00", want: want},
		{input: "2026-03-01T10:00:00.000Z", want: want},
		{input: "2026-03-01T10:00:00", want: want},
		{input: "2026-03-01T10:00:00.123", want: want.Add(123 * time.Millisecond)},
		{input: "2026-03-01 10:00:00", want: want},
		{input: "2026-03-01T10:00", want: want},
		{input: "2026-03-01", want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseTimestamp(tc.input)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "expected %v, got %v", tc.want, got)
		})
	}

	_, err := ParseTimestamp("01/03/2026")
	assert.Error(t, err)
	_, err = ParseTimestamp("")
	assert.Error(t, err)
}

func TestStoreImportIsAtomic(t *testing.T) {
	store := NewStore()
	_, err := store.Import([]byte("["+validEntry+"]"), Options{Now: fixedNow})
	require.NoError(t, err)
	require.Equal(t, 1, store.Len())

	bad := `[` + validEntry + `, ` + validEntry + `, {"ClusterName": "c", "State": "RUNNING"}]`
	_, err = store.Import([]byte(bad), Options{Now: fixedNow})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 2, verr.Index)
	assert.Equal(t, "ClusterId", verr.Field)

	assert.Equal(t, 1, store.Len())
	assert.Equal(t, 1, store.BatchCount())

	_, err = store.Import([]byte("not json"), Options{Now: fixedNow})
	assert.True(t, errors.Is(err, ErrInvalidFormat))
	assert.Equal(t, 1, store.Len())
}

func TestStoreAppendClearAndCopy(t *testing.T) {
	store := NewStore()
	_, err := store.Import([]byte("["+validEntry+","+validEntry+"]"), Options{Now: fixedNow})
	require.NoError(t, err)

	records := store.Records()
	records[0].ClusterName = "mutated"
	assert.Equal(t, "etl-nightly", store.Records()[0].ClusterName)

	store.Clear()
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, store.BatchCount())
}
