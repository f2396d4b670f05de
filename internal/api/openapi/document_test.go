package openapi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load(context.Background())
	require.NoError(t, err)

	for _, path := range []string{
		"/storage/classify",
		"/storage/disks",
		"/wizard/sessions",
		"/wizard/sessions/{id}/storages/{storageID}",
		"/wizard/sessions/{id}/references",
	} {
		require.NotNil(t, doc.Paths.Find(path), path)
	}

	storage := doc.Components.Schemas["Storage"].Value
	require.Equal(t, []string{"disk", "volume"}, storage.Required)
	require.Len(t, storage.Properties["type"].Value.Enum, 5)
}
