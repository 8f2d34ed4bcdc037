package pagination

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	token, err := EncodeCursor(Cursor{ID: "01JC4V0X8RZ6T2Q9F3M1H7N5KD", CreatedAt: now.Format(time.RFC3339Nano)})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	require.Equal(t, "01JC4V0X8RZ6T2Q9F3M1H7N5KD", cursor.ID)

	ts, err := cursor.CreatedAtTime()
	require.NoError(t, err)
	require.True(t, ts.Equal(now))
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"not base64":     "%%%",
		"not json":       base64.StdEncoding.EncodeToString([]byte("nope")),
		"missing fields": base64.StdEncoding.EncodeToString([]byte(`{"id":""}`)),
		"bad timestamp":  base64.StdEncoding.EncodeToString([]byte(`{"id":"x","created_at":"yesterday"}`)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			require.True(t, errors.Is(err, ErrInvalidCursor))
		})
	}
}

func TestClamp(t *testing.T) {
	require.Equal(t, DefaultPageSize, Pagination{}.Clamp())
	require.Equal(t, 5, Pagination{PageSize: 5}.Clamp())
	require.Equal(t, MaxPageSize, Pagination{PageSize: 5000}.Clamp())
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ ID string }
	extract := func(r *row) string { return r.ID }

	t.Run("empty", func(t *testing.T) {
		info := BuildCursorPageInfo(nil, 10, extract)
		require.False(t, info.HasMore)
		require.Empty(t, info.NextPageToken)
	})

	t.Run("exact page", func(t *testing.T) {
		info := BuildCursorPageInfo([]*row{{ID: "a"}, {ID: "b"}}, 2, extract)
		require.False(t, info.HasMore)
		require.Empty(t, info.NextPageToken)
	})

	t.Run("more rows", func(t *testing.T) {
		info := BuildCursorPageInfo([]*row{{ID: "a"}, {ID: "b"}, {ID: "c"}}, 2, extract)
		require.True(t, info.HasMore)
		require.Equal(t, "b", info.NextPageToken)
	})
}
