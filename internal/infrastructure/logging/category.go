package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	MongoDB         Category = "MongoDB"
	Redis           Category = "Redis"
	RabbitMQ        Category = "RabbitMQ"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
	Enrichment      Category = "Enrichment"
	Realtime        Category = "Realtime"
	Lifecycle       Category = "Lifecycle"
	Jobs            Category = "Jobs"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	RateLimiting    SubCategory = "RateLimiting"
	ExternalService SubCategory = "ExternalService"

	// Persistence
	Insert       SubCategory = "Insert"
	Update       SubCategory = "Update"
	Select       SubCategory = "Select"
	ChangeStream SubCategory = "ChangeStream"

	// Messaging
	Publish SubCategory = "Publish"
	Consume SubCategory = "Consume"

	// Domain
	Location       SubCategory = "Location"
	MediaUpload    SubCategory = "MediaUpload"
	Assignment     SubCategory = "Assignment"
	Classification SubCategory = "Classification"
	Subscription   SubCategory = "Subscription"
	Overdue        SubCategory = "Overdue"
	Retention      SubCategory = "Retention"
	Auth           SubCategory = "Auth"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	ClientIp     ExtraKey = "ClientIp"
	HostIp       ExtraKey = "HostIp"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	BodySize     ExtraKey = "BodySize"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	Job          ExtraKey = "Job"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
	ReportID     ExtraKey = "ReportId"
	UserID       ExtraKey = "UserId"
	Step         ExtraKey = "Step"
	EventType    ExtraKey = "EventType"
)
