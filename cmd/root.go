// Copyright 2025 The dirkv Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dirkv/dirkv/cfg"
	"github.com/dirkv/dirkv/clock"
	"github.com/dirkv/dirkv/internal/logger"
	"github.com/dirkv/dirkv/internal/metrics"
	"github.com/dirkv/dirkv/internal/server"
	"github.com/dirkv/dirkv/internal/store"
)

var (
	cfgFile       string
	bindErr       error
	configFileErr error
	unmarshalErr  error
	serverConfig  cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "dirkv [flags]",
	Short: "Serve POSIX-like filesystem volumes over the Redis wire protocol",
	Long: `dirkv stores complete filesystem trees as native keyspace values and
          exposes them through FS.* commands on a Redis-compatible listener.
          One key holds one volume: directories, files, symlinks, metadata.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bindErr != nil {
			return bindErr
		}
		if configFileErr != nil {
			return configFileErr
		}
		if unmarshalErr != nil {
			return unmarshalErr
		}
		if err := cfg.Validate(&serverConfig); err != nil {
			return err
		}
		return serve()
	},
}

func serve() error {
	lc := serverConfig.Logging
	if err := logger.Setup(lc.Format, lc.Severity, lc.FilePath); err != nil {
		return err
	}

	c := clock.RealClock{}
	st := loadOrCreateStore(c)
	st.SnapshotFileMode = os.FileMode(uint32(serverConfig.Snapshot.FileMode))

	handler := server.NewHandler(st, c, serverConfig.Snapshot.Path)
	metrics.Serve(serverConfig.Server.MetricsPort)
	srv := server.New(serverConfig.Server.ListenAddress, handler)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		if serverConfig.Snapshot.SaveOnShutdown {
			if err := handler.Store().Save(serverConfig.Snapshot.Path); err != nil {
				logger.Errorf("saving snapshot on shutdown: %v", err)
			} else {
				logger.Infof("snapshot saved to %s", serverConfig.Snapshot.Path)
			}
		}
		srv.Close()
	}()

	return srv.ListenAndServe()
}

// loadOrCreateStore restores the keyspace from the configured snapshot if one
// exists, otherwise starts empty.
func loadOrCreateStore(c clock.Clock) *store.Store {
	path := serverConfig.Snapshot.Path
	fi, err := os.Stat(path)
	if err != nil {
		return store.New(c)
	}

	st, err := store.Load(path, c)
	if err != nil {
		logger.Warnf("snapshot %s unreadable, starting empty: %v", path, err)
		return store.New(c)
	}
	logger.Infof("restored %d keys from %s (%s)", st.Len(), path, humanize.Bytes(uint64(fi.Size())))
	return st
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "Path to the config-file")
	bindErr = cfg.BindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile == "" {
		serverConfig, unmarshalErr = cfg.Unmarshal()
		return
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		configFileErr = fmt.Errorf("error while reading config file: %w", err)
		return
	}
	serverConfig, unmarshalErr = cfg.Unmarshal()
}
