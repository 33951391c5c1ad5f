//    Copyright 2024 FieldNet authors
//
//    Licensed under the Apache License, Version 2.0 (the "License");
//    you may not use this file except in compliance with the License.
//    You may obtain a copy of the License at
//
//        http://www.apache.org/licenses/LICENSE-2.0
//
//    Unless required by applicable law or agreed to in writing, software
//    distributed under the License is distributed on an "AS IS" BASIS,
//    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//    See the License for the specific language governing permissions and
//    limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/pkg/errors"
	terminate "github.com/pulcy/go-terminate"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/fieldnet/NodeWorker/model"
	"github.com/fieldnet/NodeWorker/pkg/environment"
	"github.com/fieldnet/NodeWorker/pkg/logging"
	"github.com/fieldnet/NodeWorker/pkg/ui"
	"github.com/fieldnet/NodeWorker/server"
	"github.com/fieldnet/NodeWorker/service"
	"github.com/fieldnet/NodeWorker/service/bridge"
	"github.com/fieldnet/NodeWorker/service/mqtt"
	"github.com/fieldnet/NodeWorker/service/store"
)

const (
	projectName     = "FieldNet Node Worker"
	defaultHTTPPort = 7210
	defaultSSHPort  = 7211
	defaultMqttPort = 1883
)

var (
	projectVersion = "dev"
	projectBuild   = "dev"
	maskAny        = errors.WithStack
)

func main() {
	var levelFlag string
	var boardType string
	var boardFile string
	var nodeID string
	var serverHost string
	var httpPort int
	var sshPort int
	var mqttHost string
	var mqttPort int
	var mqttUserName string
	var mqttPassword string
	var dataDir string

	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	pflag.StringVarP(&levelFlag, "level", "l", "debug", "Set log level")
	pflag.StringVarP(&boardType, "board", "b", environment.AutoDetectBoardType(defaultLogger), "Type of board to use (rpi|virtual)")
	pflag.StringVar(&boardFile, "board-file", "", "Path of a YAML board profile, overrides --board")
	pflag.StringVar(&nodeID, "node-id", "", "Node identifier, derived from the host if empty")
	pflag.StringVar(&serverHost, "host", "0.0.0.0", "Host address the servers will listen on")
	pflag.IntVar(&httpPort, "http-port", defaultHTTPPort, "Port the HTTP server will listen on")
	pflag.IntVar(&sshPort, "ssh-port", defaultSSHPort, "Port the SSH dashboard will listen on")
	pflag.StringVar(&mqttHost, "mqtt-host", "localhost", "Host the MQTT broker is listening on")
	pflag.IntVar(&mqttPort, "mqtt-port", defaultMqttPort, "Port the MQTT broker is listening on")
	pflag.StringVar(&mqttUserName, "mqtt-username", "", "Username for the MQTT broker")
	pflag.StringVar(&mqttPassword, "mqtt-password", "", "Password for the MQTT broker")
	pflag.StringVar(&dataDir, "data-dir", "/var/lib/nodeworker", "Directory holding the persisted sensor table")
	pflag.Parse()

	ctx, cancel := context.WithCancel(context.Background())

	// Logs go to the console and, once connected, to the broker.
	level, err := zerolog.ParseLevel(levelFlag)
	if err != nil {
		Exitf("Invalid log level '%s': %v\n", levelFlag, err)
	}
	mqttLog := logging.NewMQTTWriter(ctx)
	logDest := logging.NewMultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, mqttLog)
	logger := zerolog.New(logDest).Level(level).With().Timestamp().Logger()

	// Resolve the board profile
	var profile model.BoardProfile
	if boardFile != "" {
		profile, err = model.LoadProfile(boardFile)
		if err != nil {
			Exitf("Failed to load board profile '%s': %v\n", boardFile, err)
		}
	} else {
		var found bool
		profile, found = model.DefaultProfile(boardType)
		if !found {
			Exitf("Unknown board type '%s' (rpi|virtual)\n", boardType)
		}
	}

	var br bridge.API
	switch profile.Name {
	case "rpi":
		br, err = bridge.NewRaspberryPiBridge()
		if err != nil {
			Exitf("Failed to initialize Raspberry Pi bridge: %v\n", err)
		}
	default:
		br = bridge.NewVirtualBridge(profile.MaxPins)
	}

	dataStore, err := store.NewFileStore(path.Join(dataDir, "sensor-table.json"), logger)
	if err != nil {
		Exitf("Failed to open data store: %v\n", err)
	}

	svc, err := service.NewService(service.Config{
		ProgramVersion: projectVersion,
		NodeID:         nodeID,
		Profile:        profile,
	}, service.Dependencies{
		Logger: logger,
		Bridge: br,
		Store:  dataStore,
		MqttBuilder: func(clientID string) (mqtt.Service, error) {
			result, err := mqtt.NewService(mqtt.Config{
				Host:     mqttHost,
				Port:     mqttPort,
				UserName: mqttUserName,
				Password: mqttPassword,
				ClientID: clientID,
			}, logger)
			if err != nil {
				return nil, maskAny(err)
			}
			mqttLog.SetDestination(path.Join("fieldnet", "node", clientID, "log"), result)
			mqttLog.Enable(true)
			return result, nil
		},
	})
	if err != nil {
		Exitf("Failed to initialize Service: %v\n", err)
	}

	httpServer, err := server.New(server.Config{
		Host:     serverHost,
		HTTPPort: httpPort,
		SSHPort:  sshPort,
	}, logger, ui.New(svc), svc)
	if err != nil {
		Exitf("Failed to initialize Server: %v\n", err)
	}

	// Prepare to shutdown in a controlled manor
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		logger.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	fmt.Printf("Starting %s (version %s build %s)\n", projectName, projectVersion, projectBuild)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	if err := g.Wait(); err != nil {
		Exitf("Service run failed: %#v", err)
	}
}

// Print the given error message and exit with code 1
func Exitf(message string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, message, args...)
	os.Exit(1)
}
