package tracker

import (
	"context"
	"testing"

	"github.com/specialistvlad/reliefgrid/internal/product"
	"github.com/specialistvlad/reliefgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

var colorRelief = product.Product{
	Kind:    product.ColorRelief,
	Prefix:  "basemap/color_relief",
	Dataset: "NASADEM",
	Label:   "Color-Relief",
}

func TestListDone_ExtractsPublishedIDs(t *testing.T) {
	s := testutil.NewMemStore(
		colorRelief.Key("170X_080Y"),
		colorRelief.Key("-180X_-90Y"),
		"basemap/hillshade/NASADEM_Hillshade_000X_000Y.tif",
	)

	done, err := New(s, colorRelief).ListDone(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, done.Len())
	require.True(t, done.Has("170X_080Y"))
	require.True(t, done.Has("-180X_-90Y"))
	require.False(t, done.Has("000X_000Y"))
}

func TestListDone_FallsBackToEmptySet(t *testing.T) {
	s := testutil.NewMemStore(colorRelief.Key("170X_080Y"))
	s.FailList = true

	done, err := New(s, colorRelief).ListDone(context.Background())

	require.NotNil(t, done)
	require.Zero(t, done.Len())

	var trackingErr *Error
	require.ErrorAs(t, err, &trackingErr)
	require.Equal(t, "basemap/color_relief/", trackingErr.Prefix)
	require.ErrorIs(t, err, testutil.ErrInjected)
}

func TestListDone_EmptyPrefix(t *testing.T) {
	done, err := New(testutil.NewMemStore(), colorRelief).ListDone(context.Background())
	require.NoError(t, err)
	require.Zero(t, done.Len())
}
