// Package models declares the Igloo entity types and typed accessors over
// their proxies.
package models

import (
	"igloogo/internal/entity"
)

// Entity type names as used by the root query
const (
	TypeDevice              = "device"
	TypeEnvironment         = "environment"
	TypeUser                = "user"
	TypeFloatValue          = "floatValue"
	TypeCategorySeriesValue = "categorySeriesValue"
	TypeCategorySeriesNode  = "categorySeriesNode"
)

// Value fields shared by every value type
func valueFields(extra ...entity.Field) []entity.Field {
	fields := []entity.Field{
		entity.WritableField("name"),
		entity.WritableField("visibility"),
		entity.WritableField("private"),
		entity.WritableField("hidden"),
		entity.WritableField("cardSize"),
		entity.WritableField("index"),
		entity.ScalarField("myRole"),
		entity.ScalarField("createdAt"),
		entity.ScalarField("updatedAt"),
		entity.ObjectField("device", TypeDevice),
	}
	return append(fields, extra...)
}

var (
	DeviceMeta = entity.NewMeta(TypeDevice,
		entity.WritableField("name"),
		entity.WritableField("index"),
		entity.WritableField("muted"),
		entity.ScalarField("online"),
		entity.ScalarField("batteryCharging"),
		entity.ScalarField("batteryStatus"),
		entity.ScalarField("signalStatus"),
		entity.ScalarField("firmware"),
		entity.ScalarField("deviceType"),
		entity.ScalarField("myRole"),
		entity.ScalarField("createdAt"),
		entity.ScalarField("updatedAt"),
		entity.ObjectField("environment", TypeEnvironment),
	)

	EnvironmentMeta = entity.NewMeta(TypeEnvironment,
		entity.WritableField("name"),
		entity.WritableField("index"),
		entity.WritableField("muted"),
		entity.WritableField("picture"),
		entity.ScalarField("myRole"),
		entity.ScalarField("createdAt"),
		entity.ScalarField("updatedAt"),
		entity.ObjectField("owner", TypeUser),
	)

	UserMeta = entity.NewMeta(TypeUser,
		entity.WritableField("name"),
		entity.ScalarField("email"),
		entity.ScalarField("profileIconColor"),
	)

	FloatValueMeta = entity.NewMeta(TypeFloatValue, valueFields(
		entity.WritableField("value"),
		entity.WritableField("precision"),
		entity.WritableField("min"),
		entity.WritableField("max"),
		entity.WritableField("unitOfMeasurement"),
		entity.WritableField("permission"),
	)...)

	CategorySeriesValueMeta = entity.NewMeta(TypeCategorySeriesValue, valueFields(
		entity.WritableField("allowedValues"),
		entity.ObjectField("lastNode", TypeCategorySeriesNode),
	)...)

	CategorySeriesNodeMeta = entity.NewMeta(TypeCategorySeriesNode,
		entity.WritableField("value"),
		entity.WritableField("timestamp"),
		entity.ObjectField("series", TypeCategorySeriesValue),
	)
)

// All returns every entity type
func All() []*entity.Meta {
	return []*entity.Meta{
		DeviceMeta,
		EnvironmentMeta,
		UserMeta,
		FloatValueMeta,
		CategorySeriesValueMeta,
		CategorySeriesNodeMeta,
	}
}
