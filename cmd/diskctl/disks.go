package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/catalog"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
)

type disksOptions struct {
	*rootOptions
	Files       []string
	DataVolumes []string
	Claims      []string
	VMName      string
}

func (o *disksOptions) Validate() error {
	if len(o.Files) == 0 {
		return fmt.Errorf("at least one -f file is required")
	}
	return nil
}

// VMDisks is the reconciled storage of one VirtualMachine.
type VMDisks struct {
	Name       string              `json:"name"`
	Namespace  string              `json:"namespace,omitempty"`
	Disks      []combined.View     `json:"disks"`
	BootSource combined.BootSource `json:"bootSource"`
}

func newDisksCommand(root *rootOptions) *cobra.Command {
	opts := &disksOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "disks",
		Short: "Reconcile the disks of VirtualMachine manifests",
		Long: `Reconcile the disks of every VirtualMachine in the -f files with the DataVolumes
and PersistentVolumeClaims found in all given files. Lists printed by kubectl get -o yaml
are accepted.`,
		Example: `  diskctl disks -f vm.yaml
  diskctl disks -f vm.yaml --datavolumes dvs.yaml --claims pvcs.yaml -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runDisks(opts)
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVarP(&opts.Files, "filename", "f", nil, "VirtualMachine manifests")
	fs.StringSliceVar(&opts.DataVolumes, "datavolumes", nil, "DataVolume manifests")
	fs.StringSliceVar(&opts.Claims, "claims", nil, "PersistentVolumeClaim manifests")
	fs.StringVar(&opts.VMName, "vm", "", "only show the VirtualMachine with this name")
	return cmd
}

func runDisks(opts *disksOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	var all catalog.Manifests
	for _, group := range [][]string{opts.Files, opts.DataVolumes, opts.Claims} {
		for _, path := range group {
			m, err := decodeFile(path)
			if err != nil {
				return err
			}
			all.VMs = append(all.VMs, m.VMs...)
			all.DataVolumes = append(all.DataVolumes, m.DataVolumes...)
			all.Claims = append(all.Claims, m.Claims...)
			if len(m.Skipped) > 0 {
				logger.Debug("Skipped manifests", zap.String("file", path), zap.Strings("objects", m.Skipped))
			}
		}
	}

	dvs := combined.DataVolumes{Items: all.DataVolumes}
	claims := combined.Claims{Items: all.Claims}

	var out []VMDisks
	for _, vm := range all.VMs {
		if opts.VMName != "" && vm.Metadata.Name != opts.VMName {
			continue
		}
		set := combined.ForEntity(vm, dvs, claims)
		entry := VMDisks{
			Name:       vm.Metadata.Name,
			Namespace:  vm.Metadata.Namespace,
			Disks:      make([]combined.View, 0, set.Len()),
			BootSource: set.ValidateBootSource(),
		}
		for _, d := range set.Disks() {
			entry.Disks = append(entry.Disks, d.View())
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		if opts.VMName != "" {
			return fmt.Errorf("virtual machine %q not found", opts.VMName)
		}
		return fmt.Errorf("no virtual machines in %v", opts.Files)
	}

	return opts.print(out, func(t *uitable.Table) {
		t.AddRow("VM", "DISK", "SOURCE", "CONTENT", "TYPE", "BUS", "BOOT", "SIZE", "CLASS")
		for _, vm := range out {
			for _, d := range vm.Disks {
				t.AddRow(vm.Name, d.Name, d.SourceLabel, d.Content, d.Type, d.ReadableBus,
					bootOrder(d.BootOrder), sizeCell(d), d.StorageClassName)
			}
			if !vm.BootSource.Valid {
				t.AddRow(vm.Name, "", "boot source: "+vm.BootSource.Message)
			}
		}
	})
}

func decodeFile(path string) (catalog.Manifests, error) {
	f, err := os.Open(path)
	if err != nil {
		return catalog.Manifests{}, err
	}
	defer f.Close()

	m, err := catalog.DecodeManifests(f)
	if err != nil {
		return m, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func bootOrder(order *int) string {
	if order == nil {
		return "-"
	}
	return strconv.Itoa(*order)
}

func sizeCell(d combined.View) string {
	if d.SizeResolution == combined.Resolved {
		return d.Size
	}
	return d.SizeResolution.String()
}
