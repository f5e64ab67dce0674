// Package models defines the request and response bodies of the HTTP API.
package models

import (
	"github.com/dbsystel-hub/cameractl/internal/camera"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27" doc:"Build date"`
	GoVersion string `json:"go_version" example:"go1.24" doc:"Go version used for build"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"Build platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Session models
type SessionStatusData struct {
	State      string `json:"state" example:"configured" doc:"Lifecycle state: unconfigured, configuring, configured, denied"`
	Running    bool   `json:"running" example:"true" doc:"Whether the session is currently running"`
	Permission string `json:"permission" example:"granted" doc:"Camera permission state"`
	DeviceID   string `json:"device_id,omitempty" example:"video0" doc:"Active device identifier"`
	DeviceName string `json:"device_name,omitempty" example:"Integrated Camera" doc:"Active device name"`
	Position   string `json:"position,omitempty" example:"back" doc:"Active camera position"`
}

type SessionStatusResponse struct {
	Body SessionStatusData
}

type PositionRequestData struct {
	Position string `json:"position" example:"front" enum:"front,back" doc:"Camera position to switch to"`
}

type PositionRequest struct {
	Body PositionRequestData
}

// Capture models
type CaptureData struct {
	Status    string `json:"status" example:"success" doc:"Capture status"`
	DeviceID  string `json:"device_id" example:"video0" doc:"Device the photo was taken on"`
	Bytes     int    `json:"bytes" example:"245760" doc:"Size of the captured JPEG"`
	ImageData string `json:"image_data" doc:"Base64-encoded JPEG image"`
}

type CaptureResponse struct {
	Body CaptureData
}

// Control models
type ControlListData struct {
	Controls []camera.ControlState `json:"controls" doc:"Currently registered controls"`
	Count    int                   `json:"count" example:"4" doc:"Number of controls"`
}

type ControlListResponse struct {
	Body ControlListData
}

type ControlAdjustData struct {
	Value *float64 `json:"value,omitempty" example:"2.5" doc:"New slider value"`
	Index *int     `json:"index,omitempty" example:"1" doc:"New picker index"`
}

type ControlAdjustRequest struct {
	Name string `path:"name" example:"zoom" doc:"Control name"`
	Body ControlAdjustData
}

type ControlResponse struct {
	Body camera.ControlState
}

// Device models
type DeviceData struct {
	ID        string `json:"id" example:"video0" doc:"Stable device identifier"`
	Name      string `json:"name" example:"Integrated Camera" doc:"Human-readable device name"`
	Path      string `json:"path" example:"/dev/video0" doc:"Device node path"`
	Position  string `json:"position" example:"front" doc:"Which side the lens faces"`
	WideAngle bool   `json:"wide_angle" example:"false" doc:"Wide-angle capability"`
}

type DeviceListData struct {
	Devices []DeviceData `json:"devices" doc:"Currently available camera devices"`
	Count   int          `json:"count" example:"2" doc:"Number of devices"`
}

type DeviceListResponse struct {
	Body DeviceListData
}
