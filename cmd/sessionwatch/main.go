package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/repflow/repflow/internal/client"
	"github.com/repflow/repflow/internal/logging"
	"github.com/repflow/repflow/internal/navigation"
	"github.com/repflow/repflow/internal/realtime"
	"github.com/repflow/repflow/internal/workout"
)

// sessionwatch follows one live workout: it subscribes to the workout's
// change feed, re-reads the authoritative state after every burst of events
// and prints the progress plus the suggested next exercise.
func main() {
	workoutID := flag.String("workout", "", "workout id to follow")
	serverAddr := flag.String("addr", "http://localhost:8080", "repflow service address")
	redisHost := flag.String("redis-host", "localhost", "redis host")
	redisPort := flag.String("redis-port", "6379", "redis port")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Setup(logging.LoggerSetupParams{
		LogToStdout: true,
		LogLevel:    *logLevel,
	})

	if *workoutID == "" {
		log.Fatalln("workout id not set, use -workout")
	}

	accessToken := os.Getenv("REPFLOW_TOKEN")
	if accessToken == "" {
		log.Fatalln("access token not set, use REPFLOW_TOKEN env var")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(*redisHost, *redisPort),
		Password: os.Getenv("REPFLOW_REDIS_PASS"),
	})
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to ping redis: %s", err)
	}

	sessions := client.StaticSessionProvider{Token: accessToken}
	fetcher := client.NewFetcher(*serverAddr, nil, sessions)
	registry := realtime.NewRegistry(realtime.NewRedisTransport(rdb))

	refetch := func(ctx context.Context) error {
		state, err := fetcher.WorkoutState(ctx, *workoutID)
		if err != nil {
			return err
		}
		printProgress(state)
		return nil
	}

	unsubscribe, err := registry.Subscribe(*workoutID, func(event realtime.ChangeEvent) {
		log.Debugf("change feed: %s on %s", event.EventType, event.Table)
		registry.QueueFetch(*workoutID, refetch)
	})
	if err != nil {
		log.Fatalf("subscribe to workout %s: %s", *workoutID, err)
	}
	defer unsubscribe()

	// initial read, before any event arrives
	if err := refetch(ctx); err != nil {
		log.Errorf("initial workout state read: %s", err)
	}

	log.Infof("following workout %s, ctrl+c to stop ...", *workoutID)

	chOsInterrupt := make(chan os.Signal, 1)
	signal.Notify(chOsInterrupt, os.Interrupt, syscall.SIGTERM)
	receivedSig := <-chOsInterrupt
	log.Warnf("signal [%s] received, stopping ...", receivedSig)
}

func printProgress(state *workout.State) {
	sections := navigation.SectionExercises{}
	for _, we := range state.Exercises {
		sections[we.Section] = append(sections[we.Section], we)
	}
	completed := navigation.Completed(state.CompletedExercises(nil))

	fmt.Printf(
		"workout %s: %d exercises, %d sets completed\n",
		state.Workout.ID, len(state.Exercises), len(state.Sets),
	)

	for _, section := range workout.SectionOrder {
		if next := navigation.FindFirstIncompleteInSection(sections[section], completed); next != nil {
			fmt.Printf("next up: [%s] %s\n", section, next.Name)
			return
		}
	}

	fmt.Println("all exercises done, nice work 💪")
}
