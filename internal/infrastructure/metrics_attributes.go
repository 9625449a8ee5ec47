package infrastructure

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "http.method"
	httpPathKey       = "http.path"
	httpStatusCodeKey = "http.status_code"
	statusKey         = "status"
	priorityKey       = "priority"
	queueKey          = "queue"
	jobNameKey        = "job.name"
	outcomeKey        = "outcome"
	cacheNamespaceKey = "cache.namespace"
	cacheEventKey     = "cache.event"
	serviceKey        = "peer.service"
	operationKey      = "operation"
	sourceKey         = "source"
	useCaseKindKey    = "usecase.kind"
	useCaseActionKey  = "usecase.action"
)

func HTTPMethodAttr(method string) attribute.KeyValue {
	return attribute.String(httpMethodKey, method)
}

func HTTPPathAttr(path string) attribute.KeyValue {
	return attribute.String(httpPathKey, path)
}

func HTTPStatusCodeAttr(code int) attribute.KeyValue {
	return attribute.String(httpStatusCodeKey, strconv.Itoa(code))
}

func StatusAttr(status string) attribute.KeyValue {
	return attribute.String(statusKey, status)
}

func PriorityAttr(priority string) attribute.KeyValue {
	return attribute.String(priorityKey, priority)
}

func QueueAttr(queue string) attribute.KeyValue {
	return attribute.String(queueKey, queue)
}

func JobNameAttr(name string) attribute.KeyValue {
	return attribute.String(jobNameKey, name)
}

func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(outcomeKey, outcome)
}

func CacheNamespaceAttr(namespace string) attribute.KeyValue {
	return attribute.String(cacheNamespaceKey, namespace)
}

func CacheEventAttr(event string) attribute.KeyValue {
	return attribute.String(cacheEventKey, event)
}

func ServiceAttr(service string) attribute.KeyValue {
	return attribute.String(serviceKey, service)
}

func OperationAttr(operation string) attribute.KeyValue {
	return attribute.String(operationKey, operation)
}

func SourceAttr(source string) attribute.KeyValue {
	return attribute.String(sourceKey, source)
}

func UseCaseKindAttr(kind string) attribute.KeyValue {
	return attribute.String(useCaseKindKey, kind)
}

func UseCaseActionAttr(action string) attribute.KeyValue {
	return attribute.String(useCaseActionKey, action)
}
