package ws

import (
	"reflect"
)

var typeRegistry = map[string]reflect.Type{}

func init() {
	RegisterType(&MessageSubscribe{})
	RegisterType(&MessageUnsubscribe{})
	RegisterType(&MessagePing{})
	RegisterType(&MessagePong{})
}

func RegisterType(msg Message) {
	typeRegistry[msg.GetType()] = reflect.TypeOf(msg).Elem()
}

// GetTypeRegistry returns the type registry for testing
func GetTypeRegistry() map[string]reflect.Type {
	return typeRegistry
}
