package expostream

import (
	"github.com/drblury/expostream/internal/generator"
	"github.com/drblury/expostream/internal/processor"
	configpkg "github.com/drblury/expostream/internal/runtime/config"
	errspkg "github.com/drblury/expostream/internal/runtime/errors"
	idspkg "github.com/drblury/expostream/internal/runtime/ids"
	jsoncodec "github.com/drblury/expostream/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/expostream/internal/runtime/logging"
	metadatapkg "github.com/drblury/expostream/internal/runtime/metadata"
	metricspkg "github.com/drblury/expostream/internal/runtime/metrics"
	transportpkg "github.com/drblury/expostream/internal/runtime/transport"
	storepkg "github.com/drblury/expostream/internal/store"
	"github.com/drblury/expostream/internal/telemetry"
	newtransport "github.com/drblury/expostream/transport"
)

type (
	Config                = configpkg.Config
	ConfigValidationError = errspkg.ConfigValidationError

	// Events
	Event              = telemetry.Event
	PavilionReading    = telemetry.PavilionReading
	SensorMetadata     = telemetry.SensorMetadata
	VisitorEvent       = telemetry.VisitorEvent
	ScanMetadata       = telemetry.ScanMetadata
	FerrisWheelReading = telemetry.FerrisWheelReading
	WheelMetadata      = telemetry.WheelMetadata
	PavilionStatus     = telemetry.PavilionStatus
	WheelStatus        = telemetry.WheelStatus
	GateEventType      = telemetry.GateEventType
	TicketType         = telemetry.TicketType

	// Generator
	Generator             = generator.Generator
	GeneratorOption       = generator.Option
	Profile               = generator.Profile
	Pavilion              = generator.Pavilion
	Simulator             = generator.Simulator
	SimulatorDependencies = generator.SimulatorDependencies
	TickResult            = generator.TickResult

	// Processor
	Processor             = processor.Processor
	ProcessorDependencies = processor.Dependencies
	ProcessorOptions      = processor.Options
	Store                 = processor.Store
	Stats                 = processor.Snapshot
	Alert                 = processor.Alert
	Alerter               = processor.Alerter
	CrowdedPavilionRule   = processor.CrowdedPavilionRule
	HighVibrationRule     = processor.HighVibrationRule
	DecodeError           = processor.DecodeError
	PersistError          = processor.PersistError

	// Job lifecycle hooks
	JobContext = processor.JobContext
	JobHooks   = processor.JobHooks

	PostgresStore = storepkg.PostgresStore
	Metrics       = metricspkg.Metrics

	Metadata = metadatapkg.Metadata

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
	NopLogger     = loggingpkg.NopLogger

	Transport        = transportpkg.Transport
	TransportFactory = transportpkg.Factory

	// Modular transport types
	TransportRole         = newtransport.Role
	TransportBuilder      = newtransport.Builder
	TransportConfig       = newtransport.Config
	TransportRegistry     = newtransport.Registry
	TransportCapabilities = newtransport.Capabilities
)

var (
	LoadConfig     = configpkg.Load
	ValidateConfig = configpkg.ValidateConfig

	Topics         = telemetry.Topics
	EncodeEvent    = telemetry.Encode
	NewMessage     = telemetry.NewMessage
	DefaultProfile = generator.DefaultProfile
	NewGenerator   = generator.New
	WithSeed       = generator.WithSeed
	WithClock      = generator.WithClock
	NewSimulator   = generator.NewSimulator

	NewProcessor = processor.New
	NewAlerter   = processor.NewAlerter
	MetricsHooks = processor.MetricsHooks
	LoggingHooks = processor.LoggingHooks

	NewPostgresStore = storepkg.NewPostgresStore
	NewMetrics       = metricspkg.New

	DefaultTransportFactory  = transportpkg.DefaultFactory
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build
	GetCapabilities          = newtransport.GetCapabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	ErrPublisherRequired  = errspkg.ErrPublisherRequired
	ErrGeneratorRequired  = errspkg.ErrGeneratorRequired
	ErrInvalidProfile     = errspkg.ErrInvalidProfile
	ErrSubscriberRequired = errspkg.ErrSubscriberRequired
	ErrStoreRequired      = errspkg.ErrStoreRequired
	ErrTopicRequired      = errspkg.ErrTopicRequired
	ErrEventRequired      = errspkg.ErrEventRequired
	ErrConfigRequired     = errspkg.ErrConfigRequired
	ErrLoggerRequired     = errspkg.ErrLoggerRequired
	ErrUnknownPavilion    = errspkg.ErrUnknownPavilion

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewWatermillAdapter  = loggingpkg.NewWatermillAdapter

	NewMetadata = metadatapkg.New

	CreateULID = idspkg.CreateULID
)

// Topic names.
const (
	TopicPavilionSensors = telemetry.TopicPavilionSensors
	TopicVisitorEvents   = telemetry.TopicVisitorEvents
	TopicFerrisWheelOps  = telemetry.TopicFerrisWheelOps
)

// Ack modes for ProcessorOptions.AckMode.
const (
	AckModeAuto      = configpkg.AckModeAuto
	AckModePersisted = configpkg.AckModePersisted
)

// Transport roles.
const (
	RolePublisher  = newtransport.RolePublisher
	RoleSubscriber = newtransport.RoleSubscriber
	RoleBoth       = newtransport.RoleBoth
)

// Metadata keys - use these constants for standard metadata fields.
const (
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
	MetadataKeyPartitionKey  = metadatapkg.KeyPartitionKey
	MetadataKeyEventSchema   = metadatapkg.KeyEventSchema
)

// VibrationThreshold is the default HighVibrationRule threshold.
const VibrationThreshold = processor.VibrationThreshold

// DecodeEvent parses a JSON payload into one of the event types.
func DecodeEvent[T Event](payload []byte) (T, error) {
	return telemetry.Decode[T](payload)
}
