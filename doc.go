// Package expostream is the streaming core of the exposition telemetry
// pipeline. A simulator publishes pavilion occupancy readings, visitor gate
// events and Ferris-wheel operational readings onto three partitioned topics;
// a processor consumes them one at a time, persists every event into its
// TimescaleDB table, keeps run statistics and raises threshold alerts.
//
// Both halves are built on Watermill. The broker is chosen from Config
// (Kafka, NATS, RabbitMQ, or in-memory Go channels) and built for the role a
// process needs: the simulator only opens a publisher, the processor only a
// subscriber.
//
// # Topics
//
//   - pavilion-sensors: PavilionReading, keyed by pavilion id
//   - visitor-events: VisitorEvent, keyed by gate id
//   - ferris-wheel-ops: FerrisWheelReading, keyed by cart id
//
// # Delivery
//
// With AckModeAuto every pulled message is acknowledged, so a store write that
// fails is lost (at-most-once). AckModePersisted nacks such messages so that a
// broker able to redeliver will do so (at-least-once). Undecodable payloads
// are acknowledged in both modes.
//
// # Alerts
//
// A crowded pavilion and a cart vibrating above VibrationThreshold are logged
// at warn level and counted. Alerts never change how a message is handled.
//
// The binaries under cmd/ wire everything from the environment; this package
// re-exports the pieces for embedding the pipeline in another program.
package expostream
