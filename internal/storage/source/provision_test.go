package source

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kv-shepherd.io/vmwizard/internal/domain"
)

func bootOrder(n int) *int { return &n }

func TestProvisionSource_Capabilities(t *testing.T) {
	require.Same(t, URL, ProvisionURL.BootStorageSource())
	require.Same(t, ContainerEphemeral, ProvisionContainer.BootStorageSource())
	require.Same(t, AttachClonedDisk, ProvisionDisk.BootStorageSource())
	require.Nil(t, ProvisionPXE.BootStorageSource())

	require.False(t, ProvisionPXE.RequiresBootableDisk())
	require.True(t, ProvisionPXE.IsNetworkBoot())
	require.True(t, ProvisionDisk.RequiresBootableDisk())

	require.Same(t, ProvisionDisk, ProvisionSourceFromKey("Disk"))
	require.Nil(t, ProvisionSourceFromKey("Floppy"))
}

func TestProvisionSourceFromEntity(t *testing.T) {
	rootDisk := domain.Disk{Name: "rootdisk", BootOrder: bootOrder(1), Disk: &domain.DiskTarget{Bus: domain.DiskBusVirtio}}

	tests := []struct {
		name string
		vm   domain.VMLikeEntity
		want *ProvisionSource
	}{
		{
			name: "boot interface",
			vm: domain.VMLikeEntity{
				Disks:      []domain.Disk{rootDisk},
				Interfaces: []domain.Interface{{Name: "nic0", BootOrder: bootOrder(1)}},
			},
			want: ProvisionPXE,
		},
		{
			name: "container disk",
			vm: domain.VMLikeEntity{
				Disks:   []domain.Disk{rootDisk},
				Volumes: []domain.Volume{{Name: "rootdisk", ContainerDisk: &domain.ContainerDiskSource{Image: "quay.io/fedora"}}},
			},
			want: ProvisionContainer,
		},
		{
			name: "url data volume template",
			vm: domain.VMLikeEntity{
				Disks:   []domain.Disk{rootDisk},
				Volumes: []domain.Volume{{Name: "rootdisk", DataVolume: &domain.DataVolumeVolumeSource{Name: "root-dv"}}},
				DataVolumeTemplates: []domain.DataVolume{{
					Metadata: domain.ObjectMeta{Name: "root-dv"},
					Spec:     domain.DataVolumeSpec{Source: domain.DataVolumeSource{HTTP: &domain.URLSource{URL: "http://img"}}},
				}},
			},
			want: ProvisionURL,
		},
		{
			name: "cloned claim",
			vm: domain.VMLikeEntity{
				Disks:   []domain.Disk{rootDisk},
				Volumes: []domain.Volume{{Name: "rootdisk", DataVolume: &domain.DataVolumeVolumeSource{Name: "root-dv"}}},
				DataVolumeTemplates: []domain.DataVolume{{
					Metadata: domain.ObjectMeta{Name: "root-dv"},
					Spec:     domain.DataVolumeSpec{Source: domain.DataVolumeSource{PVC: &domain.PVCSource{Name: "golden"}}},
				}},
			},
			want: ProvisionDisk,
		},
		{
			name: "no boot disk",
			vm:   domain.VMLikeEntity{Disks: []domain.Disk{{Name: "data", Disk: &domain.DiskTarget{}}}},
		},
		{
			name: "attached claim",
			vm: domain.VMLikeEntity{
				Disks:   []domain.Disk{rootDisk},
				Volumes: []domain.Volume{{Name: "rootdisk", PersistentVolumeClaim: &domain.ClaimVolumeSource{ClaimName: "root"}}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Same(t, tt.want, ProvisionSourceFromEntity(tt.vm))
		})
	}
}
