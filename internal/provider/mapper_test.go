package provider

import (
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubevirtv1 "kubevirt.io/api/core/v1"
	cdiv1 "kubevirt.io/containerized-data-importer-api/pkg/apis/core/v1beta1"

	"kv-shepherd.io/vmwizard/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func storageRequest(size string) corev1.VolumeResourceRequirements {
	return corev1.VolumeResourceRequirements{
		Requests: corev1.ResourceList{corev1.ResourceStorage: resource.MustParse(size)},
	}
}

func fedoraVM() *kubevirtv1.VirtualMachine {
	return &kubevirtv1.VirtualMachine{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "fedora",
			Namespace: "demo",
			UID:       "vm-uid",
			Labels:    map[string]string{"os.template.kubevirt.io/fedora": "true"},
		},
		Spec: kubevirtv1.VirtualMachineSpec{
			DataVolumeTemplates: []kubevirtv1.DataVolumeTemplateSpec{{
				ObjectMeta: metav1.ObjectMeta{Name: "fedora-rootdisk"},
				Spec: cdiv1.DataVolumeSpec{
					Source: &cdiv1.DataVolumeSource{
						HTTP: &cdiv1.DataVolumeSourceHTTP{URL: "https://example.com/fedora.qcow2"},
					},
					Storage: &cdiv1.StorageSpec{
						Resources:        storageRequest("20Gi"),
						StorageClassName: ptr("standard"),
						AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
					},
				},
			}},
			Template: &kubevirtv1.VirtualMachineInstanceTemplateSpec{
				Spec: kubevirtv1.VirtualMachineInstanceSpec{
					Domain: kubevirtv1.DomainSpec{
						Resources: kubevirtv1.ResourceRequirements{
							Requests: corev1.ResourceList{corev1.ResourceMemory: resource.MustParse("2Gi")},
						},
						CPU: &kubevirtv1.CPU{Cores: 2},
						Devices: kubevirtv1.Devices{
							Disks: []kubevirtv1.Disk{
								{
									Name:       "rootdisk",
									BootOrder:  ptr(uint(1)),
									DiskDevice: kubevirtv1.DiskDevice{Disk: &kubevirtv1.DiskTarget{Bus: kubevirtv1.DiskBusVirtio}},
								},
								{
									Name:       "cloudinit",
									DiskDevice: kubevirtv1.DiskDevice{CDRom: &kubevirtv1.CDRomTarget{Bus: kubevirtv1.DiskBusSATA}},
								},
								{Name: "scratch"},
							},
							Interfaces: []kubevirtv1.Interface{{
								Name:                   "default",
								InterfaceBindingMethod: kubevirtv1.InterfaceBindingMethod{Masquerade: &kubevirtv1.InterfaceMasquerade{}},
							}},
						},
					},
					Networks: []kubevirtv1.Network{{
						Name:          "default",
						NetworkSource: kubevirtv1.NetworkSource{Pod: &kubevirtv1.PodNetwork{}},
					}},
					Volumes: []kubevirtv1.Volume{
						{
							Name:         "rootdisk",
							VolumeSource: kubevirtv1.VolumeSource{DataVolume: &kubevirtv1.DataVolumeSource{Name: "fedora-rootdisk"}},
						},
						{
							Name: "cloudinit",
							VolumeSource: kubevirtv1.VolumeSource{
								CloudInitNoCloud: &kubevirtv1.CloudInitNoCloudSource{UserData: "#cloud-config"},
							},
						},
						{
							Name: "scratch",
							VolumeSource: kubevirtv1.VolumeSource{
								EmptyDisk: &kubevirtv1.EmptyDiskSource{Capacity: resource.MustParse("1Gi")},
							},
						},
					},
				},
			},
		},
	}
}

func TestKubeVirtMapper_MapVM(t *testing.T) {
	entity, err := NewKubeVirtMapper().MapVM(fedoraVM())
	require.NoError(t, err)

	require.Equal(t, domain.VMLikeEntity{
		Metadata: domain.ObjectMeta{
			Name:      "fedora",
			Namespace: "demo",
			UID:       "vm-uid",
			Labels:    map[string]string{"os.template.kubevirt.io/fedora": "true"},
		},
		Disks: []domain.Disk{
			{Name: "rootdisk", BootOrder: ptr(1), Disk: &domain.DiskTarget{Bus: domain.DiskBusVirtio}},
			{Name: "cloudinit", CDRom: &domain.DiskTarget{Bus: domain.DiskBusSATA}},
			{Name: "scratch", Disk: &domain.DiskTarget{}},
		},
		Interfaces: []domain.Interface{{Name: "default", Binding: "masquerade"}},
		Networks:   []domain.Network{{Name: "default", Pod: &domain.PodNetwork{}}},
		Volumes: []domain.Volume{
			{Name: "rootdisk", DataVolume: &domain.DataVolumeVolumeSource{Name: "fedora-rootdisk"}},
			{Name: "cloudinit", CloudInitNoCloud: &domain.CloudInitNoCloudSource{UserData: "#cloud-config"}},
			{Name: "scratch", EmptyDisk: &domain.EmptyDiskSource{Capacity: "1Gi"}},
		},
		DataVolumeTemplates: []domain.DataVolume{{
			Metadata: domain.ObjectMeta{Name: "fedora-rootdisk", Namespace: "demo"},
			Spec: domain.DataVolumeSpec{
				Source: domain.DataVolumeSource{HTTP: &domain.URLSource{URL: "https://example.com/fedora.qcow2"}},
				Storage: domain.StorageSpec{
					Resources:        domain.ResourceRequirements{Requests: domain.ResourceList{Storage: "20Gi"}},
					StorageClassName: ptr("standard"),
					AccessModes:      []string{"ReadWriteOnce"},
				},
			},
		}},
		Memory:   "2Gi",
		CPUCores: 2,
	}, entity)
}

func TestKubeVirtMapper_MapVMErrors(t *testing.T) {
	m := NewKubeVirtMapper()

	_, err := m.MapVM(nil)
	require.Error(t, err)

	_, err = m.MapVM(&kubevirtv1.VirtualMachine{ObjectMeta: metav1.ObjectMeta{Name: "bare"}})
	require.ErrorContains(t, err, "has no template")
}

func TestKubeVirtMapper_MapTemplate(t *testing.T) {
	tpl, err := NewKubeVirtMapper().MapTemplate(fedoraVM())
	require.NoError(t, err)
	require.Equal(t, "fedora", tpl.Name())
	require.Equal(t, tpl.Metadata, tpl.VM.Metadata)
	require.Len(t, tpl.VM.Disks, 3)
}

func TestKubeVirtMapper_MapDataVolume(t *testing.T) {
	block := corev1.PersistentVolumeBlock
	tests := []struct {
		name string
		dv   cdiv1.DataVolume
		want domain.DataVolumeSpec
	}{
		{
			name: "registry source with legacy pvc spec",
			dv: cdiv1.DataVolume{Spec: cdiv1.DataVolumeSpec{
				Source: &cdiv1.DataVolumeSource{Registry: &cdiv1.DataVolumeSourceRegistry{URL: ptr("docker://quay.io/containerdisks/fedora")}},
				PVC:    &corev1.PersistentVolumeClaimSpec{Resources: storageRequest("30Gi"), VolumeMode: &block},
			}},
			want: domain.DataVolumeSpec{
				Source: domain.DataVolumeSource{Registry: &domain.URLSource{URL: "docker://quay.io/containerdisks/fedora"}},
				Storage: domain.StorageSpec{
					Resources:  domain.ResourceRequirements{Requests: domain.ResourceList{Storage: "30Gi"}},
					VolumeMode: ptr("Block"),
				},
			},
		},
		{
			name: "pvc clone",
			dv: cdiv1.DataVolume{Spec: cdiv1.DataVolumeSpec{
				Source:  &cdiv1.DataVolumeSource{PVC: &cdiv1.DataVolumeSourcePVC{Name: "fedora-base", Namespace: "os-images"}},
				Storage: &cdiv1.StorageSpec{},
			}},
			want: domain.DataVolumeSpec{
				Source: domain.DataVolumeSource{PVC: &domain.PVCSource{Name: "fedora-base", Namespace: "os-images"}},
			},
		},
		{
			name: "blank",
			dv: cdiv1.DataVolume{Spec: cdiv1.DataVolumeSpec{
				Source: &cdiv1.DataVolumeSource{Blank: &cdiv1.DataVolumeBlankImage{}},
			}},
			want: domain.DataVolumeSpec{Source: domain.DataVolumeSource{Blank: &domain.BlankSource{}}},
		},
		{
			name: "no source",
			dv:   cdiv1.DataVolume{},
			want: domain.DataVolumeSpec{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewKubeVirtMapper().MapDataVolume(&tt.dv)
			require.Equal(t, tt.want, got.Spec)
		})
	}
}

func TestKubeVirtMapper_MapClaim(t *testing.T) {
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "fedora-rootdisk",
			Namespace: "demo",
			OwnerReferences: []metav1.OwnerReference{{
				APIVersion: "cdi.kubevirt.io/v1beta1",
				Kind:       "DataVolume",
				Name:       "fedora-rootdisk",
				UID:        "dv-uid",
			}},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			Resources:   storageRequest("20Gi"),
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteMany},
		},
	}

	got := NewKubeVirtMapper().MapClaim(pvc)
	require.Equal(t, domain.PersistentVolumeClaim{
		Metadata: domain.ObjectMeta{
			Name:      "fedora-rootdisk",
			Namespace: "demo",
			OwnerReferences: []domain.OwnerReference{{
				APIVersion: "cdi.kubevirt.io/v1beta1",
				Kind:       "DataVolume",
				Name:       "fedora-rootdisk",
				UID:        "dv-uid",
			}},
		},
		Spec: domain.StorageSpec{
			Resources:   domain.ResourceRequirements{Requests: domain.ResourceList{Storage: "20Gi"}},
			AccessModes: []string{"ReadWriteMany"},
		},
	}, got)
}
