package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/cloudlink/pkg/transport/mqtt"
)

const headSize = 16

var (
	mqttURL = "mqtt://localhost:1883/cloudlink/"
)

func init() {
	if val := os.Getenv("CLOUDLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	opts, prefix, err := mqtt.ClientOptionsFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q := mqtt.NewQueue(opts, prefix)
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.MetaTopic):
			if len(payload) == 0 {
				log.Printf("%s: cleared", topic)
				return
			}
			var meta mqtt.Meta
			if err := json.Unmarshal(payload, &meta); err != nil {
				log.Printf("%s: bad meta: %v", topic, err)
				return
			}
			log.Printf("%s: device=%s online=%v", topic, meta.DeviceID, meta.Online)
		case strings.HasSuffix(topic, "/"+mqtt.UpTopic), strings.HasSuffix(topic, "/"+mqtt.DownTopic):
			head := payload
			if len(head) > headSize {
				head = head[:headSize]
			}
			log.Printf("%s: %d bytes %s", topic, len(payload), hex.EncodeToString(head))
		default:
			log.Printf("%s: %d bytes", topic, len(payload))
		}
	}))
	<-(chan struct{})(nil)
}
