package models

import (
	"context"
	"time"

	"igloogo/internal/entity"
	"igloogo/internal/graphql"
)

// CardSize of a value card in the dashboard
type CardSize string

const (
	CardSmall CardSize = "SMALL"
	CardWide  CardSize = "WIDE"
	CardLarge CardSize = "LARGE"
)

// Each field has a Load method returning a Pending read and a blocking
// getter awaiting it. Issue several Load calls before awaiting any of them
// to fetch the fields in one query.

// Device is a physical device registered in an environment
type Device struct {
	p *entity.Proxy
}

// NewDevice wraps a device proxy
func NewDevice(p *entity.Proxy) *Device { return &Device{p: p} }

func (d *Device) ID() string           { return d.p.ID() }
func (d *Device) Proxy() *entity.Proxy { return d.p }

func (d *Device) LoadName(ctx context.Context) *Pending[string] {
	return load[string](ctx, d.p, "name")
}

func (d *Device) Name(ctx context.Context) (string, error) {
	return d.LoadName(ctx).Await(ctx)
}

func (d *Device) SetName(ctx context.Context, name string) error {
	return d.p.Set(ctx, "name", name)
}

func (d *Device) LoadOnline(ctx context.Context) *Pending[bool] {
	return load[bool](ctx, d.p, "online")
}

func (d *Device) Online(ctx context.Context) (bool, error) {
	return d.LoadOnline(ctx).Await(ctx)
}

func (d *Device) LoadMuted(ctx context.Context) *Pending[bool] {
	return load[bool](ctx, d.p, "muted")
}

func (d *Device) Muted(ctx context.Context) (bool, error) {
	return d.LoadMuted(ctx).Await(ctx)
}

func (d *Device) SetMuted(ctx context.Context, muted bool) error {
	return d.p.Set(ctx, "muted", muted)
}

func (d *Device) LoadBatteryCharging(ctx context.Context) *Pending[bool] {
	return load[bool](ctx, d.p, "batteryCharging")
}

func (d *Device) BatteryCharging(ctx context.Context) (bool, error) {
	return d.LoadBatteryCharging(ctx).Await(ctx)
}

func (d *Device) LoadBatteryStatus(ctx context.Context) *Pending[*float64] {
	return load[*float64](ctx, d.p, "batteryStatus")
}

func (d *Device) BatteryStatus(ctx context.Context) (*float64, error) {
	return d.LoadBatteryStatus(ctx).Await(ctx)
}

func (d *Device) LoadSignalStatus(ctx context.Context) *Pending[*float64] {
	return load[*float64](ctx, d.p, "signalStatus")
}

func (d *Device) SignalStatus(ctx context.Context) (*float64, error) {
	return d.LoadSignalStatus(ctx).Await(ctx)
}

func (d *Device) LoadFirmware(ctx context.Context) *Pending[string] {
	return load[string](ctx, d.p, "firmware")
}

func (d *Device) Firmware(ctx context.Context) (string, error) {
	return d.LoadFirmware(ctx).Await(ctx)
}

func (d *Device) LoadEnvironment(ctx context.Context) *Pending[*Environment] {
	return loadRef(ctx, d.p, "environment", NewEnvironment)
}

func (d *Device) Environment(ctx context.Context) (*Environment, error) {
	return d.LoadEnvironment(ctx).Await(ctx)
}

// Environment groups devices and is shared between users
type Environment struct {
	p *entity.Proxy
}

// NewEnvironment wraps an environment proxy
func NewEnvironment(p *entity.Proxy) *Environment { return &Environment{p: p} }

func (e *Environment) ID() string { return e.p.ID() }

func (e *Environment) LoadName(ctx context.Context) *Pending[string] {
	return load[string](ctx, e.p, "name")
}

func (e *Environment) Name(ctx context.Context) (string, error) {
	return e.LoadName(ctx).Await(ctx)
}

func (e *Environment) SetName(ctx context.Context, name string) error {
	return e.p.Set(ctx, "name", name)
}

func (e *Environment) LoadIndex(ctx context.Context) *Pending[int] {
	return load[int](ctx, e.p, "index")
}

func (e *Environment) Index(ctx context.Context) (int, error) {
	return e.LoadIndex(ctx).Await(ctx)
}

func (e *Environment) LoadMuted(ctx context.Context) *Pending[bool] {
	return load[bool](ctx, e.p, "muted")
}

func (e *Environment) Muted(ctx context.Context) (bool, error) {
	return e.LoadMuted(ctx).Await(ctx)
}

func (e *Environment) SetMuted(ctx context.Context, muted bool) error {
	return e.p.Set(ctx, "muted", muted)
}

func (e *Environment) LoadOwner(ctx context.Context) *Pending[*User] {
	return loadRef(ctx, e.p, "owner", NewUser)
}

func (e *Environment) Owner(ctx context.Context) (*User, error) {
	return e.LoadOwner(ctx).Await(ctx)
}

// User is an account of the service
type User struct {
	p *entity.Proxy
}

// NewUser wraps a user proxy
func NewUser(p *entity.Proxy) *User { return &User{p: p} }

func (u *User) ID() string { return u.p.ID() }

func (u *User) LoadName(ctx context.Context) *Pending[string] {
	return load[string](ctx, u.p, "name")
}

func (u *User) Name(ctx context.Context) (string, error) {
	return u.LoadName(ctx).Await(ctx)
}

func (u *User) LoadEmail(ctx context.Context) *Pending[string] {
	return load[string](ctx, u.p, "email")
}

func (u *User) Email(ctx context.Context) (string, error) {
	return u.LoadEmail(ctx).Await(ctx)
}

// baseValue holds the fields shared by every value type
type baseValue struct {
	p *entity.Proxy
}

func (v baseValue) ID() string           { return v.p.ID() }
func (v baseValue) Proxy() *entity.Proxy { return v.p }

func (v baseValue) LoadName(ctx context.Context) *Pending[string] {
	return load[string](ctx, v.p, "name")
}

func (v baseValue) Name(ctx context.Context) (string, error) {
	return v.LoadName(ctx).Await(ctx)
}

func (v baseValue) SetName(ctx context.Context, name string) error {
	return v.p.Set(ctx, "name", name)
}

func (v baseValue) LoadVisibility(ctx context.Context) *Pending[string] {
	return load[string](ctx, v.p, "visibility")
}

func (v baseValue) Visibility(ctx context.Context) (string, error) {
	return v.LoadVisibility(ctx).Await(ctx)
}

func (v baseValue) SetVisibility(ctx context.Context, visibility string) error {
	return v.p.Set(ctx, "visibility", graphql.Enum(visibility))
}

func (v baseValue) LoadPrivate(ctx context.Context) *Pending[bool] {
	return load[bool](ctx, v.p, "private")
}

func (v baseValue) Private(ctx context.Context) (bool, error) {
	return v.LoadPrivate(ctx).Await(ctx)
}

func (v baseValue) SetPrivate(ctx context.Context, private bool) error {
	return v.p.Set(ctx, "private", private)
}

func (v baseValue) LoadHidden(ctx context.Context) *Pending[bool] {
	return load[bool](ctx, v.p, "hidden")
}

func (v baseValue) Hidden(ctx context.Context) (bool, error) {
	return v.LoadHidden(ctx).Await(ctx)
}

func (v baseValue) SetHidden(ctx context.Context, hidden bool) error {
	return v.p.Set(ctx, "hidden", hidden)
}

func (v baseValue) LoadCardSize(ctx context.Context) *Pending[CardSize] {
	return load[CardSize](ctx, v.p, "cardSize")
}

func (v baseValue) CardSize(ctx context.Context) (CardSize, error) {
	return v.LoadCardSize(ctx).Await(ctx)
}

func (v baseValue) SetCardSize(ctx context.Context, size CardSize) error {
	return v.p.Set(ctx, "cardSize", graphql.Enum(size))
}

func (v baseValue) LoadIndex(ctx context.Context) *Pending[int] {
	return load[int](ctx, v.p, "index")
}

func (v baseValue) Index(ctx context.Context) (int, error) {
	return v.LoadIndex(ctx).Await(ctx)
}

func (v baseValue) SetIndex(ctx context.Context, index int) error {
	return v.p.Set(ctx, "index", index)
}

func (v baseValue) LoadMyRole(ctx context.Context) *Pending[string] {
	return load[string](ctx, v.p, "myRole")
}

func (v baseValue) MyRole(ctx context.Context) (string, error) {
	return v.LoadMyRole(ctx).Await(ctx)
}

func (v baseValue) LoadCreatedAt(ctx context.Context) *Pending[time.Time] {
	return loadTime(ctx, v.p, "createdAt")
}

func (v baseValue) CreatedAt(ctx context.Context) (time.Time, error) {
	return v.LoadCreatedAt(ctx).Await(ctx)
}

func (v baseValue) LoadUpdatedAt(ctx context.Context) *Pending[time.Time] {
	return loadTime(ctx, v.p, "updatedAt")
}

func (v baseValue) UpdatedAt(ctx context.Context) (time.Time, error) {
	return v.LoadUpdatedAt(ctx).Await(ctx)
}

func (v baseValue) LoadDevice(ctx context.Context) *Pending[*Device] {
	return loadRef(ctx, v.p, "device", NewDevice)
}

func (v baseValue) Device(ctx context.Context) (*Device, error) {
	return v.LoadDevice(ctx).Await(ctx)
}

// FloatValue is a numeric value exposed by a device
type FloatValue struct {
	baseValue
}

// NewFloatValue wraps a floatValue proxy
func NewFloatValue(p *entity.Proxy) *FloatValue {
	return &FloatValue{baseValue{p: p}}
}

// LoadValue reads the current value, nil until the device first reports one
func (v *FloatValue) LoadValue(ctx context.Context) *Pending[*float64] {
	return load[*float64](ctx, v.p, "value")
}

func (v *FloatValue) Value(ctx context.Context) (*float64, error) {
	return v.LoadValue(ctx).Await(ctx)
}

func (v *FloatValue) SetValue(ctx context.Context, value float64) error {
	return v.p.Set(ctx, "value", value)
}

func (v *FloatValue) LoadMin(ctx context.Context) *Pending[*float64] {
	return load[*float64](ctx, v.p, "min")
}

func (v *FloatValue) Min(ctx context.Context) (*float64, error) {
	return v.LoadMin(ctx).Await(ctx)
}

func (v *FloatValue) SetMin(ctx context.Context, value float64) error {
	return v.p.Set(ctx, "min", value)
}

func (v *FloatValue) LoadMax(ctx context.Context) *Pending[*float64] {
	return load[*float64](ctx, v.p, "max")
}

func (v *FloatValue) Max(ctx context.Context) (*float64, error) {
	return v.LoadMax(ctx).Await(ctx)
}

func (v *FloatValue) SetMax(ctx context.Context, value float64) error {
	return v.p.Set(ctx, "max", value)
}

func (v *FloatValue) LoadPrecision(ctx context.Context) *Pending[*float64] {
	return load[*float64](ctx, v.p, "precision")
}

func (v *FloatValue) Precision(ctx context.Context) (*float64, error) {
	return v.LoadPrecision(ctx).Await(ctx)
}

func (v *FloatValue) LoadUnitOfMeasurement(ctx context.Context) *Pending[string] {
	return load[string](ctx, v.p, "unitOfMeasurement")
}

func (v *FloatValue) UnitOfMeasurement(ctx context.Context) (string, error) {
	return v.LoadUnitOfMeasurement(ctx).Await(ctx)
}

func (v *FloatValue) SetUnitOfMeasurement(ctx context.Context, unit string) error {
	return v.p.Set(ctx, "unitOfMeasurement", unit)
}

// CategorySeriesValue is a time series of values from a fixed set
type CategorySeriesValue struct {
	baseValue
}

// NewCategorySeriesValue wraps a categorySeriesValue proxy
func NewCategorySeriesValue(p *entity.Proxy) *CategorySeriesValue {
	return &CategorySeriesValue{baseValue{p: p}}
}

func (v *CategorySeriesValue) LoadAllowedValues(ctx context.Context) *Pending[[]string] {
	return load[[]string](ctx, v.p, "allowedValues")
}

func (v *CategorySeriesValue) AllowedValues(ctx context.Context) ([]string, error) {
	return v.LoadAllowedValues(ctx).Await(ctx)
}

func (v *CategorySeriesValue) SetAllowedValues(ctx context.Context, values []string) error {
	return v.p.Set(ctx, "allowedValues", values)
}

// LoadLastNode reads the latest node of the series, nil if it is empty
func (v *CategorySeriesValue) LoadLastNode(ctx context.Context) *Pending[*CategorySeriesNode] {
	return loadRef(ctx, v.p, "lastNode", NewCategorySeriesNode)
}

func (v *CategorySeriesValue) LastNode(ctx context.Context) (*CategorySeriesNode, error) {
	return v.LoadLastNode(ctx).Await(ctx)
}

// CategorySeriesNode is one sample of a category series
type CategorySeriesNode struct {
	p *entity.Proxy
}

// NewCategorySeriesNode wraps a categorySeriesNode proxy
func NewCategorySeriesNode(p *entity.Proxy) *CategorySeriesNode {
	return &CategorySeriesNode{p: p}
}

func (n *CategorySeriesNode) ID() string { return n.p.ID() }

func (n *CategorySeriesNode) LoadValue(ctx context.Context) *Pending[string] {
	return load[string](ctx, n.p, "value")
}

func (n *CategorySeriesNode) Value(ctx context.Context) (string, error) {
	return n.LoadValue(ctx).Await(ctx)
}

func (n *CategorySeriesNode) LoadTimestamp(ctx context.Context) *Pending[time.Time] {
	return loadTime(ctx, n.p, "timestamp")
}

func (n *CategorySeriesNode) Timestamp(ctx context.Context) (time.Time, error) {
	return n.LoadTimestamp(ctx).Await(ctx)
}

func (n *CategorySeriesNode) LoadSeries(ctx context.Context) *Pending[*CategorySeriesValue] {
	return loadRef(ctx, n.p, "series", NewCategorySeriesValue)
}

func (n *CategorySeriesNode) Series(ctx context.Context) (*CategorySeriesValue, error) {
	return n.LoadSeries(ctx).Await(ctx)
}
