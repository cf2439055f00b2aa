package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "sensor_msgs/msg/PointCloud2", schemaName("application/cdr;sensor_msgs/msg/PointCloud2"))
	assert.Equal(t, "sensor_msgs/msg/PointCloud2", schemaName("sensor_msgs/msg/PointCloud2"))
	assert.Equal(t, "", schemaName(""))
}
