package tray

import (
	"github.com/godbus/dbus/v5"
)

// sniObject implements org.kde.StatusNotifierItem. This tray carries no
// direct click action (ItemIsMenu), so the methods are acknowledged no-ops.
type sniObject struct {
	t *Tray
}

func (s *sniObject) Activate(x, y int32) *dbus.Error          { return nil }
func (s *sniObject) SecondaryActivate(x, y int32) *dbus.Error { return nil }
func (s *sniObject) Scroll(delta int32, orientation string) *dbus.Error {
	return nil
}

var (
	errUnknownInterface = dbus.NewError("org.freedesktop.DBus.Error.UnknownInterface", nil)
	errUnknownProperty  = dbus.NewError("org.freedesktop.DBus.Error.UnknownProperty", nil)
	errReadOnly         = dbus.NewError("org.freedesktop.DBus.Error.PropertyReadOnly", nil)
)

// sniProps serves org.freedesktop.DBus.Properties for the item object.
// Everything is read-only; IconName is the only value that changes.
type sniProps struct {
	t *Tray
}

func (p *sniProps) properties() map[string]dbus.Variant {
	p.t.mu.Lock()
	icon := p.t.icon
	p.t.mu.Unlock()

	return map[string]dbus.Variant{
		"Category":          dbus.MakeVariant("ApplicationStatus"),
		"Id":                dbus.MakeVariant("soupawhisper"),
		"Title":             dbus.MakeVariant("SoupaWhisper"),
		"Status":            dbus.MakeVariant("Active"),
		"IconName":          dbus.MakeVariant(icon),
		"IconThemePath":     dbus.MakeVariant(""),
		"AttentionIconName": dbus.MakeVariant(""),
		"Menu":              dbus.MakeVariant(menuPath),
		"ItemIsMenu":        dbus.MakeVariant(true),
	}
}

func (p *sniProps) Get(iface, name string) (dbus.Variant, *dbus.Error) {
	if iface != sniInterface {
		return dbus.Variant{}, errUnknownInterface
	}
	v, ok := p.properties()[name]
	if !ok {
		return dbus.Variant{}, errUnknownProperty
	}
	return v, nil
}

func (p *sniProps) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	if iface != sniInterface {
		return nil, errUnknownInterface
	}
	return p.properties(), nil
}

func (p *sniProps) Set(iface, name string, value dbus.Variant) *dbus.Error {
	return errReadOnly
}

const sniIntrospectXML = `<node>
  <interface name="org.kde.StatusNotifierItem">
    <property name="Category" type="s" access="read"/>
    <property name="Id" type="s" access="read"/>
    <property name="Title" type="s" access="read"/>
    <property name="Status" type="s" access="read"/>
    <property name="IconName" type="s" access="read"/>
    <property name="IconThemePath" type="s" access="read"/>
    <property name="AttentionIconName" type="s" access="read"/>
    <property name="Menu" type="o" access="read"/>
    <property name="ItemIsMenu" type="b" access="read"/>
    <method name="Activate">
      <arg type="i" direction="in"/><arg type="i" direction="in"/>
    </method>
    <method name="SecondaryActivate">
      <arg type="i" direction="in"/><arg type="i" direction="in"/>
    </method>
    <method name="Scroll">
      <arg type="i" direction="in"/><arg type="s" direction="in"/>
    </method>
    <signal name="NewIcon"/>
    <signal name="NewTitle"/>
    <signal name="NewStatus"><arg type="s"/></signal>
  </interface>
</node>`
