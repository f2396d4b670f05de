package main

import (
	"fmt"
	"slices"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kv-shepherd.io/vmwizard/internal/domain"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
	"kv-shepherd.io/vmwizard/internal/storage/source"
)

var (
	volumeTypes = []domain.VolumeType{
		domain.VolumeTypeDataVolume,
		domain.VolumeTypePersistentVolumeClaim,
		domain.VolumeTypeContainerDisk,
		domain.VolumeTypeCloudInitNoCloud,
		domain.VolumeTypeEphemeral,
		domain.VolumeTypeEmptyDisk,
	}
	dataVolumeSourceTypes = []domain.DataVolumeSourceType{
		domain.DataVolumeSourceBlank,
		domain.DataVolumeSourceHTTP,
		domain.DataVolumeSourceRegistry,
		domain.DataVolumeSourcePVC,
		domain.DataVolumeSourceUpload,
	}
)

type classifyOptions struct {
	*rootOptions
	VolumeType string
	DVSource   string
	NewClaim   bool
}

func (o *classifyOptions) Validate() error {
	if o.VolumeType == "" {
		if o.DVSource != "" || o.NewClaim {
			return fmt.Errorf("--volume-type is required with --dv-source and --new-claim")
		}
		return nil
	}
	if !slices.Contains(volumeTypes, domain.VolumeType(o.VolumeType)) {
		return fmt.Errorf("unknown volume type %q", o.VolumeType)
	}
	if o.DVSource == "" {
		return nil
	}
	if domain.VolumeType(o.VolumeType) != domain.VolumeTypeDataVolume {
		return fmt.Errorf("--dv-source only applies to %s volumes", domain.VolumeTypeDataVolume)
	}
	if !slices.Contains(dataVolumeSourceTypes, domain.DataVolumeSourceType(o.DVSource)) {
		return fmt.Errorf("unknown DataVolume source %q", o.DVSource)
	}
	return nil
}

func newClassifyCommand(root *rootOptions) *cobra.Command {
	opts := &classifyOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show the storage source of a volume, or every source without flags",
		Example: `  diskctl classify
  diskctl classify --volume-type dataVolume --dv-source http
  diskctl classify --volume-type persistentVolumeClaim --new-claim -o yaml`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return runClassify(opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.VolumeType, "volume-type", "", "volume type, e.g. dataVolume or containerDisk")
	fs.StringVar(&opts.DVSource, "dv-source", "", "DataVolume source type, e.g. blank or http")
	fs.BoolVar(&opts.NewClaim, "new-claim", false, "the claim is created together with the VM")
	return cmd
}

func runClassify(opts *classifyOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	var caps []source.Capabilities
	if opts.VolumeType == "" {
		for _, s := range source.All {
			caps = append(caps, s.Capabilities())
		}
	} else {
		s := source.Classify(domain.VolumeType(opts.VolumeType), domain.DataVolumeSourceType(opts.DVSource), opts.NewClaim)
		logger.Debug("Classified volume",
			zap.String("volume_type", opts.VolumeType),
			zap.String("dv_source", opts.DVSource),
			zap.String("source", s.Key()),
		)
		caps = append(caps, s.Capabilities())
	}

	return opts.print(caps, func(t *uitable.Table) {
		t.AddRow("KEY", "LABEL", "SIZE", "CLASS", "CLAIM", "URL", "IMAGE", "CDROM", "EDITABLE")
		for _, c := range caps {
			t.AddRow(c.Key, c.Label, yesNo(c.RequiresSize), yesNo(c.RequiresStorageClass),
				yesNo(c.RequiresClaim || c.RequiresNewClaim), yesNo(c.RequiresURL),
				yesNo(c.RequiresContainerImage), yesNo(c.CDRomCompatible), yesNo(c.EditingSupported))
		}
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
