package serve

import (
	"time"

	cmdUtil "github.com/hanpf2391/Flux/cmd/util"

	"github.com/hanpf2391/Flux/api/common"
	"github.com/hanpf2391/Flux/api/server"
	"github.com/hanpf2391/Flux/api/ws"
	"github.com/hanpf2391/Flux/lib/cache/memcache"
	"github.com/hanpf2391/Flux/lib/grid/memgrid"
	"github.com/hanpf2391/Flux/lib/heatmap"
	"github.com/hanpf2391/Flux/lib/hotspot"
	"github.com/hanpf2391/Flux/lib/ratelimit"
	"github.com/hanpf2391/Flux/lib/resolver"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the Flux canvas server",
		Long:    `Start the Flux canvas server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is FLUX_<flag> (e.g. FLUX_ENDPOINT=0.0.0.0:9090)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the HTTP API will listen (e.g. 0.0.0.0:8080)"))

	key = "rate-limit-cooldown"
	ServeCmd.PersistentFlags().Duration(key, time.Second, cmdUtil.WrapString("Minimum time between two accepted writes from the same address. Set to 0 to disable throttling"))

	key = "chunk-size"
	ServeCmd.PersistentFlags().Int(key, heatmap.DefaultChunkSize, cmdUtil.WrapString("Side length in cells of one heatmap chunk"))

	key = "hotspot-grid-size"
	ServeCmd.PersistentFlags().Int(key, 200, cmdUtil.WrapString("Side length in cells of the squares the hotspot analyzer aggregates over"))

	key = "hotspot-window-days"
	ServeCmd.PersistentFlags().Int(key, 7, cmdUtil.WrapString("Only cells written within this many days count towards the hotspot"))

	key = "hotspot-refresh"
	ServeCmd.PersistentFlags().Duration(key, 5*time.Minute, cmdUtil.WrapString("Period of the scheduled hotspot recomputation"))

	key = "hotspot-cache-ttl"
	ServeCmd.PersistentFlags().Duration(key, 5*time.Minute, cmdUtil.WrapString("TTL of the cached hotspot position"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.SerializerType = viper.GetString("serializer")
	serveCmdConfig.RateLimitCooldown = viper.GetDuration("rate-limit-cooldown")
	serveCmdConfig.ChunkSize = viper.GetInt("chunk-size")
	serveCmdConfig.HotspotGridSize = viper.GetInt("hotspot-grid-size")
	serveCmdConfig.HotspotWindowDays = viper.GetInt("hotspot-window-days")
	serveCmdConfig.HotspotRefresh = viper.GetDuration("hotspot-refresh")
	serveCmdConfig.HotspotCacheTTL = viper.GetDuration("hotspot-cache-ttl")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return nil
}

// run wires the canvas subsystems together and starts the HTTP server
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(*serveCmdConfig)
	server.Logger.Infof("Configuration: %s", serveCmdConfig.String())

	// parse the serializer
	ser, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	// the grid store and its caches
	store := memgrid.New(nil)
	defer store.Close()

	cache := memcache.New(nil)
	defer cache.Close()

	limiter := ratelimit.New(serveCmdConfig.RateLimitCooldown)
	defer limiter.Close()

	// realtime fan-out and the write path (always JSON on the wire, the
	// serializer flag covers cached values)
	hub := ws.NewHub(store)
	defer hub.Close()

	res := resolver.New(store, hub)

	// background hotspot analysis
	analyzer := hotspot.New(store, cache, ser, hotspot.Config{
		GridSize:        serveCmdConfig.HotspotGridSize,
		WindowDays:      serveCmdConfig.HotspotWindowDays,
		RefreshInterval: serveCmdConfig.HotspotRefresh,
		CacheTTL:        serveCmdConfig.HotspotCacheTTL,
	})
	analyzer.Start()
	defer analyzer.Close()

	aggregator := heatmap.New(store, serveCmdConfig.ChunkSize)

	serv := server.New(
		*serveCmdConfig,
		store,
		res,
		limiter,
		hub,
		analyzer,
		aggregator,
	)

	return serv.Listen()
}
