// Copyright 2026 The tcbot Authors
// SPDX-License-Identifier: Apache-2.0

package teamcity

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const restPrefix = "/app/rest/latest"

// BuildHref is the href of a build resource.
func BuildHref(buildID int) string {
	return restPrefix + "/builds/id:" + strconv.Itoa(buildID)
}

// TestsHref is the href of a build's test occurrence list.
func TestsHref(buildID int) string {
	return restPrefix + "/testOccurrences?locator=build:(id:" + strconv.Itoa(buildID) + ")"
}

// TestOccurrenceID is the occurrence id TeamCity assigns to the test
// with the given in-build id.
func TestOccurrenceID(buildID, idInBuild int) string {
	return fmt.Sprintf("build:(id:%d),id:%d", buildID, idInBuild)
}

// TestOccurrenceHref is the href of a single test occurrence.
func TestOccurrenceHref(buildID, idInBuild int) string {
	return restPrefix + "/testOccurrences/" + TestOccurrenceID(buildID, idInBuild)
}

// ProblemsHref is the href of a build's problem list.
func ProblemsHref(buildID int) string {
	return restPrefix + "/problemOccurrences?locator=build:(id:" + strconv.Itoa(buildID) + ")"
}

// ProblemOccurrenceID is the id of a problem occurrence in a build.
func ProblemOccurrenceID(problemID, buildID int) string {
	return fmt.Sprintf("problem:(id:%d),build:(id:%d)", problemID, buildID)
}

// ProblemOccurrenceHref is the href of a single problem occurrence.
func ProblemOccurrenceHref(problemID, buildID int) string {
	return restPrefix + "/problemOccurrences/" + ProblemOccurrenceID(problemID, buildID)
}

// StatisticsHref is the href of a build's statistics.
func StatisticsHref(buildID int) string {
	return BuildHref(buildID) + "/statistics"
}

// ChangesHref is the href of a build's change list.
func ChangesHref(buildID int) string {
	return restPrefix + "/changes?locator=build:(id:" + strconv.Itoa(buildID) + ")"
}

// FinishedBuildsHref is the href listing finished builds of a suite on
// a branch. includeFailedToStart widens the query to builds that never
// started because a snapshot dependency failed.
func FinishedBuildsHref(suiteID, branch string, includeFailedToStart bool) string {
	locator := "buildType:" + suiteID + ",state:finished,count:1000"
	if branch != "" {
		locator += ",branch:(name:" + branch + ")"
	}
	if includeFailedToStart {
		locator += ",failedToStart:any,defaultFilter:false"
	}
	return restPrefix + "/builds?locator=" + url.QueryEscape(locator)
}

// ParseTestOccurrenceID extracts the in-build test id from an
// occurrence id such as "build:(id:42),id:1077".
func ParseTestOccurrenceID(id string) (int, bool) {
	index := strings.LastIndex(id, "id:")
	if index < 0 || (index > 0 && id[index-1] != ',') {
		return 0, false
	}
	value, err := strconv.Atoi(id[index+len("id:"):])
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseProblemOccurrenceID extracts the problem id from an occurrence
// id such as "problem:(id:13),build:(id:42)".
func ParseProblemOccurrenceID(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, "problem:(id:")
	if !ok {
		return 0, false
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return 0, false
	}
	value, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, false
	}
	return value, true
}
