// Package consts holds physical constants shared across engines.
package consts

// KELVIN converts a Celsius temperature to Kelvin (0C).
const KELVIN = 273.15
