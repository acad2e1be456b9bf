package main

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/buildbarn/bb-zone-writer/pkg/clock"
	"github.com/buildbarn/bb-zone-writer/pkg/configuration"
	"github.com/buildbarn/bb-zone-writer/pkg/global"
	"github.com/buildbarn/bb-zone-writer/pkg/program"
	"github.com/buildbarn/bb-zone-writer/pkg/util"
	"github.com/buildbarn/bb-zone-writer/pkg/zbc"
	"github.com/buildbarn/bb-zone-writer/pkg/zonewriter"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// A utility for writing data sequentially into a single zone of a
// zoned block device, such as an SMR hard drive or a ZNS SSD.
//
// The first empty zone of the device is selected. If no empty zones
// exist, the first implicitly opened zone is used instead, in which
// case writing continues at the zone's write pointer. Data is read from
// a regular file or block device, or consists of a fill pattern. The
// transfer stops when the source is exhausted, the zone is full or when
// the process receives SIGINT, SIGTERM or SIGQUIT. Interrupting a
// transfer is not considered to be an error.

type commandLineFlags struct {
	configPath     string
	verbose        bool
	fill           bool
	direct         bool
	emulate        bool
	decompress     bool
	ioSizeBytes    int
	maximumIOCount uint64
	fillPattern    uint8
}

func main() {
	var flags commandLineFlags
	root := &cobra.Command{
		Use:   "bb_zone_write [-v] [flags] <source file> <device path>\n  bb_zone_write [-v] --fill [flags] <device path>",
		Short: "Write data sequentially into a zone of a zoned block device",
		Args: func(cmd *cobra.Command, args []string) error {
			expectedArgs := 2
			if flags.fill {
				expectedArgs = 1
			}
			if len(args) != expectedArgs {
				cmd.Usage()
				return status.Errorf(codes.InvalidArgument, "Expected %d arguments, got %d", expectedArgs, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := getApplicationConfiguration(cmd, &flags, args[len(args)-1])
			if err != nil {
				return err
			}
			sourcePath := ""
			if !flags.fill {
				sourcePath = args[0]
			}
			program.RunMain(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
				return runTransfer(ctx, dependenciesGroup, config, &flags, sourcePath)
			})
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.Flags().StringVar(&flags.configPath, "config", "", "Jsonnet configuration file")
	root.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log every write that is issued")
	root.Flags().BoolVar(&flags.fill, "fill", false, "write a fill pattern instead of the contents of a file")
	root.Flags().BoolVar(&flags.direct, "direct", false, "open the device with O_DIRECT")
	root.Flags().BoolVar(&flags.emulate, "emulate", false, "treat the device path as the backing file of an emulated zoned device")
	root.Flags().BoolVar(&flags.decompress, "decompress", false, "decompress the source file using Zstandard")
	root.Flags().IntVar(&flags.ioSizeBytes, "io-size", 0, "size of every write in bytes (default: page size)")
	root.Flags().Uint64Var(&flags.maximumIOCount, "max-io", 0, "maximum number of writes to issue (default: unlimited)")
	root.Flags().Uint8Var(&flags.fillPattern, "pattern", 0, "byte value to write in fill mode")

	if err := root.Execute(); err != nil {
		log.Print("Fatal error: ", status.Convert(err).Message())
		os.Exit(1)
	}
}

// getApplicationConfiguration loads the configuration file, if any,
// and applies command line flags on top of it.
func getApplicationConfiguration(cmd *cobra.Command, flags *commandLineFlags, devicePath string) (*configuration.ApplicationConfiguration, error) {
	config := &configuration.ApplicationConfiguration{}
	if flags.configPath != "" {
		var err error
		config, err = configuration.ReadApplicationConfiguration(flags.configPath)
		if err != nil {
			return nil, err
		}
	}

	config.Device.Path = devicePath
	if cmd.Flags().Changed("direct") {
		config.Device.Direct = flags.direct
	}
	if flags.emulate && config.Device.Emulated == nil {
		config.Device.Emulated = &configuration.EmulatedDeviceConfiguration{}
	}
	if cmd.Flags().Changed("io-size") {
		config.IOSizeBytes = flags.ioSizeBytes
	}
	if cmd.Flags().Changed("max-io") {
		config.MaximumIOCount = flags.maximumIOCount
	}
	if cmd.Flags().Changed("pattern") {
		config.FillPattern = flags.fillPattern
	}
	configuration.SetDefaultApplicationValues(config)
	return config, nil
}

func runTransfer(ctx context.Context, dependenciesGroup program.Group, config *configuration.ApplicationConfiguration, flags *commandLineFlags, sourcePath string) (err error) {
	diagnosticsServer, err := global.ApplyConfiguration(&config.Global, uuid.NewRandom)
	if err != nil {
		return util.StatusWrap(err, "Failed to apply global configuration options")
	}
	dependenciesGroup.Go(func(ctx context.Context, siblingsGroup, dependenciesGroup program.Group) error {
		return diagnosticsServer.Serve(ctx)
	})

	device, err := zbc.NewDeviceFromConfiguration(&config.Device)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := device.Close(); closeErr != nil && err == nil {
			err = util.StatusWrapf(closeErr, "Failed to close device %s", config.Device.Path)
		}
	}()

	log.Printf("Device %s:", config.Device.Path)
	deviceInfo := device.GetDeviceInfo()
	deviceInfo.Print(log.Writer())

	zone, err := zonewriter.SelectTargetZone(device)
	if err != nil {
		return util.StatusWrapf(err, "Failed to select target zone of device %s", config.Device.Path)
	}

	var source io.Reader
	if sourcePath != "" {
		s, err := zonewriter.OpenSource(sourcePath, flags.decompress)
		if err != nil {
			return err
		}
		defer s.Close()
		log.Printf("Writing file %s (%d B) to target zone %d, %d B I/Os", sourcePath, s.SizeBytes(), zone.Index(), config.IOSizeBytes)
		source = s
	} else {
		log.Printf("Filling target zone %d with pattern 0x%02x, %d B I/Os", zone.Index(), config.FillPattern, config.IOSizeBytes)
	}

	engine := zonewriter.NewEngine(zonewriter.EngineOptions{
		IOSizeBytes:    config.IOSizeBytes,
		MaximumIOCount: config.MaximumIOCount,
		FillPattern:    config.FillPattern,
		Verbose:        flags.verbose,
	}, clock.SystemClock)
	diagnosticsServer.SetReady()
	stats, err := engine.Run(ctx, device, zone, source)
	diagnosticsServer.SetNotServing()

	log.Printf("Transfer %s completed (%s)", diagnosticsServer.TransferID(), stats.Completed)
	log.Print(stats)
	if pushErr := diagnosticsServer.PushMetrics(); pushErr != nil {
		log.Print(pushErr)
	}
	return err
}
