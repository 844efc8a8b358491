package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"

	"github.com/amine-amaach/opcua-monitoreditems/internal/config"
	"github.com/amine-amaach/opcua-monitoreditems/internal/demo"
	"github.com/amine-amaach/opcua-monitoreditems/internal/monitoreditem"
	"github.com/amine-amaach/opcua-monitoreditems/internal/ua"
)

const banner = `
 __  __             _ _                    _ ____
|  \/  | ___  _ __ (_) |_ ___  _ __ ___  __| |  _ \
| |\/| |/ _ \| '_ \| | __/ _ \| '__/ _ \/ _  | | | |
| |  | | (_) | | | | | || (_) | | |  __/ (_| | |_| |
|_|  |_|\___/|_| |_|_|\__\___/|_|  \___|\__,_|____/
Monitored Item Engine Demo                        %s
`

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	fmt.Println(fmt.Sprintf(banner, "v0.1.0"))

	cfg := config.Load(log)
	bounds := cfg.Bounds()

	pool := workerpool.New(cfg.SamplerWorkers)
	defer pool.StopWait()

	scheduler := monitoreditem.NewScheduler()
	defer scheduler.Close()

	registry := monitoreditem.NewRegistry()

	temperature := demo.NewVariableNode("Temperature", 20.0).
		WithEURange(-20, 80)
	pressure := demo.NewVariableNode("Pressure", 101.3).
		WithEURange(80, 120)

	deps := monitoreditem.Deps{
		Bounds:    bounds,
		Scheduler: scheduler,
		Pool:      pool,
		Registry:  registry,
		Logger:    log,
	}

	tempDeps := deps
	tempDeps.Node = temperature
	tempItem, err := monitoreditem.New(monitoreditem.CreateParams{
		MonitoredItemID: 1,
		ClientHandle:    100,
		ItemToMonitor:   ua.ReadValueID{NodeID: "ns=1;s=Temperature", AttributeID: ua.AttributeIDValue},
		SamplingInterval: 500,
		QueueSize:        10,
		DiscardOldest:    true,
		Filter: &ua.DataChangeFilter{
			Trigger:       ua.TriggerStatusValue,
			DeadbandType:  ua.DeadbandAbsolute,
			DeadbandValue: 0.5,
		},
		TimestampsToReturn: ua.TimestampsBoth,
	}, tempDeps)
	if err != nil {
		log.WithError(err).Fatal("failed to create temperature monitored item")
	}

	pressureDeps := deps
	pressureDeps.Node = pressure
	pressureItem, err := monitoreditem.New(monitoreditem.CreateParams{
		MonitoredItemID:    2,
		ClientHandle:       200,
		ItemToMonitor:      ua.ReadValueID{NodeID: "ns=1;s=Pressure", AttributeID: ua.AttributeIDValue},
		SamplingInterval:   0,
		QueueSize:          5,
		DiscardOldest:      false,
		TimestampsToReturn: ua.TimestampsBoth,
	}, pressureDeps)
	if err != nil {
		log.WithError(err).Fatal("failed to create pressure monitored item")
	}

	tempItem.SetMonitoringMode(ua.ModeReporting)
	pressureItem.SetMonitoringMode(ua.ModeReporting)
	defer tempItem.Terminate()
	defer pressureItem.Terminate()

	sub := demo.NewSubscription(1*time.Second, log)
	sub.AddItem(tempItem)
	sub.AddItem(pressureItem)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx)

	go driveTemperature(ctx, temperature)
	go drivePressure(ctx, pressure)

	log.WithField("live_items", registry.Count()).Info("engine started, publishing every second")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
}

func driveTemperature(ctx context.Context, node *demo.VariableNode) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	value := 20.0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value += rand.NormFloat64() * 0.4
			node.Write(value, ua.Good)
		}
	}
}

func drivePressure(ctx context.Context, node *demo.VariableNode) {
	ticker := time.NewTicker(700 * time.Millisecond)
	defer ticker.Stop()
	value := 101.3
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			value += rand.NormFloat64() * 0.2
			node.Write(value, ua.Good)
		}
	}
}
