package settings

// Setting is one row of the key/value configuration store. Business-tunable
// values (idle threshold, end of business day, timezone, geofence reference)
// live here so admins can change them without a redeploy.
type Setting struct {
	Key   string `gorm:"column:key;type:varchar(100);primaryKey"`
	Value string `gorm:"column:value;type:text;not null"`
}

func (Setting) TableName() string {
	return "settings"
}

// Well-known setting keys.
const (
	KeyIdleThresholdMinutes = "idle_time_threshold_minutes"
	KeyEndOfBusinessDay     = "end_of_business_day_time"
	KeySystemTimezone       = "system_timezone"
	KeyRequireGPSCheck      = "require_gps_check"
	KeyGeofenceLatitude     = "geofence_latitude"
	KeyGeofenceLongitude    = "geofence_longitude"
	KeyGeofenceRadiusMeters = "geofence_radius_meters"
)

// Defaults applied when a key is absent from the store.
const (
	DefaultIdleThresholdMinutes = 15
	DefaultEndOfBusinessDay     = "18:00"
	DefaultSystemTimezone       = "Europe/Athens"
)
