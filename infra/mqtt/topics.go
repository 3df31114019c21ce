package mqtt

import (
	"strings"

	"github.com/kilianp07/roamnet/core/model"
)

// Topic layout below the configured prefix:
//
//	<prefix>/availability                  online | <lwt payload>, retained
//	<prefix>/status/<entity>               status change
//	<prefix>/admin_status/<entity>         admin status change
//	<prefix>/membership/<parent>           child added or removed
//	<prefix>/status/set/<entity>           inbound status reports

func availabilityTopic(prefix string) string { return prefix + "/availability" }

func statusTopic(prefix string, ref model.EntityRef) string {
	return prefix + "/status/" + ref.String()
}

func adminStatusTopic(prefix string, ref model.EntityRef) string {
	return prefix + "/admin_status/" + ref.String()
}

func membershipTopic(prefix string, parent model.EntityRef) string {
	return prefix + "/membership/" + parent.String()
}

func statusSetFilter(prefix string) string { return prefix + "/status/set/+" }

// entityFromSetTopic extracts the entity of an inbound status topic.
func entityFromSetTopic(prefix, topic string) (model.EntityRef, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/status/set/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return model.EntityRef{}, false
	}
	ref, err := model.ParseEntityRef(rest)
	if err != nil {
		return model.EntityRef{}, false
	}
	return ref, true
}
