package provider

import (
	"fmt"
	"maps"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubevirtv1 "kubevirt.io/api/core/v1"
	cdiv1 "kubevirt.io/containerized-data-importer-api/pkg/apis/core/v1beta1"

	"kv-shepherd.io/vmwizard/internal/domain"
)

// KubeVirtMapper maps KubeVirt, CDI and core Kubernetes objects to domain records.
// Anti-Corruption Layer: isolates the wizard from K8s API changes.
type KubeVirtMapper struct{}

// NewKubeVirtMapper creates a new KubeVirtMapper.
func NewKubeVirtMapper() *KubeVirtMapper {
	return &KubeVirtMapper{}
}

// MapVM maps a VirtualMachine to the entity the storage and network views work on.
// Devices without an explicit type are treated as disks, as KubeVirt defaults them.
func (m *KubeVirtMapper) MapVM(vm *kubevirtv1.VirtualMachine) (domain.VMLikeEntity, error) {
	if vm == nil {
		return domain.VMLikeEntity{}, fmt.Errorf("mapper: vm is nil")
	}
	if vm.Name == "" {
		return domain.VMLikeEntity{}, fmt.Errorf("mapper: vm name is empty")
	}
	if vm.Spec.Template == nil {
		return domain.VMLikeEntity{}, fmt.Errorf("mapper: vm %s has no template", vm.Name)
	}

	spec := vm.Spec.Template.Spec
	entity := domain.VMLikeEntity{Metadata: mapMeta(vm.ObjectMeta)}

	for _, d := range spec.Domain.Devices.Disks {
		entity.Disks = append(entity.Disks, mapDisk(d))
	}
	for _, i := range spec.Domain.Devices.Interfaces {
		entity.Interfaces = append(entity.Interfaces, mapInterface(i))
	}
	for _, n := range spec.Networks {
		entity.Networks = append(entity.Networks, mapNetwork(n))
	}
	for _, v := range spec.Volumes {
		entity.Volumes = append(entity.Volumes, mapVolume(v))
	}
	for _, t := range vm.Spec.DataVolumeTemplates {
		dv := domain.DataVolume{Metadata: mapMeta(t.ObjectMeta), Spec: mapDataVolumeSpec(t.Spec)}
		if dv.Metadata.Namespace == "" {
			dv.Metadata.Namespace = vm.Namespace
		}
		entity.DataVolumeTemplates = append(entity.DataVolumeTemplates, dv)
	}

	if mem, ok := spec.Domain.Resources.Requests[corev1.ResourceMemory]; ok {
		entity.Memory = quantityString(mem)
	} else if spec.Domain.Memory != nil && spec.Domain.Memory.Guest != nil {
		entity.Memory = quantityString(*spec.Domain.Memory.Guest)
	}
	if spec.Domain.CPU != nil {
		entity.CPUCores = int(spec.Domain.CPU.Cores)
	}
	return entity, nil
}

// MapTemplate maps a template manifest. Templates are VirtualMachines whose labels and
// annotations carry the OS, workload, flavor and validation metadata.
func (m *KubeVirtMapper) MapTemplate(vm *kubevirtv1.VirtualMachine) (domain.Template, error) {
	entity, err := m.MapVM(vm)
	if err != nil {
		return domain.Template{}, err
	}
	return domain.Template{Metadata: entity.Metadata, VM: entity}, nil
}

// MapDataVolume maps a CDI DataVolume.
func (m *KubeVirtMapper) MapDataVolume(dv *cdiv1.DataVolume) domain.DataVolume {
	return domain.DataVolume{Metadata: mapMeta(dv.ObjectMeta), Spec: mapDataVolumeSpec(dv.Spec)}
}

// MapDataVolumes maps a DataVolume listing.
func (m *KubeVirtMapper) MapDataVolumes(dvs []cdiv1.DataVolume) []domain.DataVolume {
	out := make([]domain.DataVolume, 0, len(dvs))
	for i := range dvs {
		out = append(out, m.MapDataVolume(&dvs[i]))
	}
	return out
}

// MapClaim maps a PersistentVolumeClaim.
func (m *KubeVirtMapper) MapClaim(pvc *corev1.PersistentVolumeClaim) domain.PersistentVolumeClaim {
	return domain.PersistentVolumeClaim{
		Metadata: mapMeta(pvc.ObjectMeta),
		Spec: storageSpec(pvc.Spec.Resources, pvc.Spec.StorageClassName,
			pvc.Spec.AccessModes, pvc.Spec.VolumeMode),
	}
}

// MapClaims maps a claim listing.
func (m *KubeVirtMapper) MapClaims(pvcs []corev1.PersistentVolumeClaim) []domain.PersistentVolumeClaim {
	out := make([]domain.PersistentVolumeClaim, 0, len(pvcs))
	for i := range pvcs {
		out = append(out, m.MapClaim(&pvcs[i]))
	}
	return out
}

func mapMeta(meta metav1.ObjectMeta) domain.ObjectMeta {
	out := domain.ObjectMeta{
		Name:        meta.Name,
		Namespace:   meta.Namespace,
		UID:         string(meta.UID),
		Labels:      maps.Clone(meta.Labels),
		Annotations: maps.Clone(meta.Annotations),
	}
	for _, ref := range meta.OwnerReferences {
		out.OwnerReferences = append(out.OwnerReferences, domain.OwnerReference{
			APIVersion: ref.APIVersion,
			Kind:       ref.Kind,
			Name:       ref.Name,
			UID:        string(ref.UID),
		})
	}
	return out
}

func mapDisk(d kubevirtv1.Disk) domain.Disk {
	out := domain.Disk{Name: d.Name}
	if d.BootOrder != nil {
		order := int(*d.BootOrder)
		out.BootOrder = &order
	}
	switch {
	case d.CDRom != nil:
		out.CDRom = &domain.DiskTarget{Bus: domain.DiskBus(d.CDRom.Bus)}
	case d.LUN != nil:
		out.LUN = &domain.DiskTarget{Bus: domain.DiskBus(d.LUN.Bus)}
	case d.Disk != nil:
		out.Disk = &domain.DiskTarget{Bus: domain.DiskBus(d.Disk.Bus)}
	default:
		out.Disk = &domain.DiskTarget{}
	}
	return out
}

func mapInterface(i kubevirtv1.Interface) domain.Interface {
	out := domain.Interface{Name: i.Name, Model: i.Model, MACAddress: i.MacAddress}
	if i.BootOrder != nil {
		order := int(*i.BootOrder)
		out.BootOrder = &order
	}
	switch {
	case i.Bridge != nil:
		out.Binding = "bridge"
	case i.Masquerade != nil:
		out.Binding = "masquerade"
	case i.SRIOV != nil:
		out.Binding = "sriov"
	}
	return out
}

func mapNetwork(n kubevirtv1.Network) domain.Network {
	out := domain.Network{Name: n.Name}
	switch {
	case n.Pod != nil:
		out.Pod = &domain.PodNetwork{}
	case n.Multus != nil:
		out.Multus = &domain.MultusNetwork{NetworkName: n.Multus.NetworkName}
	}
	return out
}

func mapVolume(v kubevirtv1.Volume) domain.Volume {
	out := domain.Volume{Name: v.Name}
	switch {
	case v.DataVolume != nil:
		out.DataVolume = &domain.DataVolumeVolumeSource{Name: v.DataVolume.Name}
	case v.PersistentVolumeClaim != nil:
		out.PersistentVolumeClaim = &domain.ClaimVolumeSource{ClaimName: v.PersistentVolumeClaim.ClaimName}
	case v.ContainerDisk != nil:
		out.ContainerDisk = &domain.ContainerDiskSource{Image: v.ContainerDisk.Image}
	case v.CloudInitNoCloud != nil:
		out.CloudInitNoCloud = &domain.CloudInitNoCloudSource{
			UserData:       v.CloudInitNoCloud.UserData,
			UserDataBase64: v.CloudInitNoCloud.UserDataBase64,
		}
	case v.Ephemeral != nil:
		out.Ephemeral = &domain.EphemeralVolumeSource{}
		if v.Ephemeral.PersistentVolumeClaim != nil {
			out.Ephemeral.ClaimName = v.Ephemeral.PersistentVolumeClaim.ClaimName
		}
	case v.EmptyDisk != nil:
		out.EmptyDisk = &domain.EmptyDiskSource{Capacity: quantityString(v.EmptyDisk.Capacity)}
	}
	return out
}

// mapDataVolumeSpec prefers the storage API over the legacy pvc API when both are set.
func mapDataVolumeSpec(spec cdiv1.DataVolumeSpec) domain.DataVolumeSpec {
	var out domain.DataVolumeSpec
	if src := spec.Source; src != nil {
		switch {
		case src.Blank != nil:
			out.Source.Blank = &domain.BlankSource{}
		case src.HTTP != nil:
			out.Source.HTTP = &domain.URLSource{URL: src.HTTP.URL}
		case src.Registry != nil:
			out.Source.Registry = &domain.URLSource{}
			if src.Registry.URL != nil {
				out.Source.Registry.URL = *src.Registry.URL
			}
		case src.PVC != nil:
			out.Source.PVC = &domain.PVCSource{Name: src.PVC.Name, Namespace: src.PVC.Namespace}
		case src.Upload != nil:
			out.Source.Upload = &domain.UploadSource{}
		}
	}
	switch {
	case spec.Storage != nil:
		out.Storage = storageSpec(spec.Storage.Resources, spec.Storage.StorageClassName,
			spec.Storage.AccessModes, spec.Storage.VolumeMode)
	case spec.PVC != nil:
		out.Storage = storageSpec(spec.PVC.Resources, spec.PVC.StorageClassName,
			spec.PVC.AccessModes, spec.PVC.VolumeMode)
	}
	return out
}

func storageSpec(
	resources corev1.VolumeResourceRequirements,
	class *string,
	modes []corev1.PersistentVolumeAccessMode,
	volumeMode *corev1.PersistentVolumeMode,
) domain.StorageSpec {
	out := domain.StorageSpec{}
	if size, ok := resources.Requests[corev1.ResourceStorage]; ok {
		out.Resources.Requests.Storage = quantityString(size)
	}
	if class != nil {
		c := *class
		out.StorageClassName = &c
	}
	for _, mode := range modes {
		out.AccessModes = append(out.AccessModes, string(mode))
	}
	if volumeMode != nil {
		vm := string(*volumeMode)
		out.VolumeMode = &vm
	}
	return out
}

func quantityString(q resource.Quantity) string {
	if q.IsZero() {
		return ""
	}
	return q.String()
}
