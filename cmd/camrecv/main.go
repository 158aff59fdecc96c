// Command camrecv receives framed captures from the camera board over a serial
// link, stores each one as a file and optionally forwards it over MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.bug.st/serial"

	"arducam-go/internal/config"
	"arducam-go/internal/log"
	"arducam-go/x/camframe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "camrecv:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		port     = flag.String("port", config.SerialPort(), "serial port (empty autodetects)")
		vid      = flag.String("vid", config.String("CAMRECV_VID", ""), "USB vendor ID to match when autodetecting")
		baud     = flag.Int("baud", config.Int("CAMRECV_BAUD", config.DefaultBaud), "serial baud rate")
		outDir   = flag.String("out", config.String("CAMRECV_OUT", config.DefaultOutDir), "directory for received captures")
		ext      = flag.String("ext", config.String("CAMRECV_EXT", ".jpg"), "file extension for captures")
		maxFrame = flag.Int("max-frame", config.Int("CAMRECV_MAX_FRAME", config.DefaultMaxFrame), "largest accepted capture in bytes")
		broker   = flag.String("mqtt", config.MQTTBroker(), "MQTT broker URL (empty disables)")
		topic    = flag.String("topic", config.String("MQTT_TOPIC", config.DefaultMQTTTopic), "MQTT topic prefix")
		clientID = flag.String("client-id", config.String("MQTT_CLIENT_ID", config.DefaultMQTTClient), "MQTT client ID")
		level    = flag.String("log", config.String("LOG_LEVEL", "info"), "log level")
	)
	flag.Parse()
	log.Init(*level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := *port
	if name == "" {
		var err error
		if name, err = detectPort(*vid); err != nil {
			return err
		}
	}
	sp, err := serial.Open(name, &serial.Mode{BaudRate: *baud})
	if err != nil {
		return fmt.Errorf("open serial port %s: %w", name, err)
	}
	// Closing the port unblocks the pending read.
	go func() {
		<-ctx.Done()
		sp.Close()
	}()

	store, err := newDirStore(*outDir, *ext)
	if err != nil {
		return err
	}
	r := &receiver{
		frames: camframe.NewReader(sp, *maxFrame),
		store:  store,
		log:    log.With("port", name),
	}
	if *broker != "" {
		c, err := connectMQTT(*broker, *clientID)
		if err != nil {
			return err
		}
		defer c.Disconnect(250)
		r.pub = &mqttPublisher{client: c, topic: *topic, wait: config.DefaultPublishWait}
		log.Info("publishing captures", "broker", *broker, "topic", *topic)
	}

	log.Info("receiving", "port", name, "baud", *baud, "out", *outDir)
	err = r.run(ctx)
	log.Info("stopped", "frames", r.stats.Frames, "incomplete", r.stats.Incomplete, "dropped", r.stats.Dropped)
	return err
}
