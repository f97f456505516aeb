package utils

import (
	"errors"
	"regexp"
	"strings"
)

var (
	phoneRegex   = regexp.MustCompile(`^[6-9]\d{9}$`)
	otpRegex     = regexp.MustCompile(`^\d{4,6}$`)
	pincodeRegex = regexp.MustCompile(`^\d{6}$`)
	panRegex     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	gstinRegex   = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z]{1}[1-9A-Z]{1}Z[0-9A-Z]{1}$`)
	ifscRegex    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

	cinPrefixRegex    = regexp.MustCompile(`^[LU]`)
	cinIndustryRegex  = regexp.MustCompile(`^[LU]\d{5}`)
	cinStateRegex     = regexp.MustCompile(`^[LU]\d{5}[A-Z]{2}`)
	cinYearRegex      = regexp.MustCompile(`^[LU]\d{5}[A-Z]{2}\d{4}`)
	cinOwnershipRegex = regexp.MustCompile(`^[LU]\d{5}[A-Z]{2}\d{4}[A-Z]{3}`)
	cinRegex          = regexp.MustCompile(`^[LU]\d{5}[A-Z]{2}\d{4}[A-Z]{3}\d{6}$`)
)

// IsValidMobileNumber reports whether the value is a ten digit Indian
// mobile number starting with 6-9.
func IsValidMobileNumber(number string) bool {
	return phoneRegex.MatchString(number)
}

// IsValidOTP reports whether the value is a 4 to 6 digit code.
func IsValidOTP(code string) bool {
	return otpRegex.MatchString(code)
}

// IsValidPincode reports whether the value is a six digit postal code.
func IsValidPincode(pincode string) bool {
	return pincodeRegex.MatchString(pincode)
}

// IsValidPAN reports whether the value matches the permanent account
// number format. The check is case sensitive, callers should uppercase
// user input first.
func IsValidPAN(pan string) bool {
	return panRegex.MatchString(pan)
}

// IsValidGSTIN reports whether the value matches the GST identification
// number format.
func IsValidGSTIN(gstin string) bool {
	return gstinRegex.MatchString(gstin)
}

// IsValidIFSC reports whether the value matches the IFSC format, four
// letters, a zero, then six alphanumerics.
func IsValidIFSC(code string) bool {
	return len(code) == 11 && ifscRegex.MatchString(strings.ToUpper(code))
}

// ValidateCIN checks a corporate identification number segment by
// segment so the caller can surface the first failing part.
func ValidateCIN(cin string) error {
	if len(cin) != 21 {
		return errors.New("CIN must be exactly 21 characters long")
	}
	if !cinPrefixRegex.MatchString(cin) {
		return errors.New("CIN must start with L or U")
	}
	if !cinIndustryRegex.MatchString(cin) {
		return errors.New("CIN industry code must be 5 digits")
	}
	if !cinStateRegex.MatchString(cin) {
		return errors.New("CIN state code must be 2 letters")
	}
	if !cinYearRegex.MatchString(cin) {
		return errors.New("CIN incorporation year must be 4 digits")
	}
	if !cinOwnershipRegex.MatchString(cin) {
		return errors.New("CIN ownership type must be 3 letters")
	}
	if !cinRegex.MatchString(cin) {
		return errors.New("CIN registration number must be 6 digits")
	}
	return nil
}
